package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var wipeForce bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete the vault and all restore points",
	Long: `Deletes the container, every restore point and any leftover temporary
files. The backup file, if one was written, is not touched. There is
no undo.`,
	Args: cobra.NoArgs,
	RunE: runWipe,
}

func init() {
	rootCmd.AddCommand(wipeCmd)
	wipeCmd.Flags().BoolVarP(&wipeForce, "force", "f", false, "skip the confirmation prompt")
}

func runWipe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.store.Exists() {
		fmt.Println("Nothing to wipe.")
		return nil
	}

	if !wipeForce {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Type 'wipe' to delete the vault and every restore point: ")
		line, _ := reader.ReadString('\n')
		if strings.TrimSpace(line) != "wipe" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := a.store.DeleteAll(); err != nil {
		return err
	}

	fmt.Printf("%s vault deleted\n", color.GreenString("✓"))
	return nil
}
