package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rmForce bool

var rmCmd = &cobra.Command{
	Use:   "rm <description>",
	Short: "Delete a secret",
	Long: `Deletes a secret from the vault. The deletion is kept as a tombstone
until the next sync round, so other copies learn about it.`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "skip the confirmation prompt")
}

func runRm(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	v, err := a.unlock(cmd.Context())
	if err != nil {
		return err
	}
	defer v.session.Lock()

	if v.collection.Find(args[0]) == nil {
		return fmt.Errorf("no secret named %q", args[0])
	}

	if !rmForce {
		reader := bufio.NewReader(os.Stdin)
		if !confirm(reader, fmt.Sprintf("Delete %q?", args[0]), os.Stdout) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	v.collection.Delete(args[0])
	if err := a.save(v); err != nil {
		return err
	}

	fmt.Printf("%s deleted %q\n", color.GreenString("✓"), args[0])
	return nil
}
