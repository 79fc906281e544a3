package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tmarsden/strongbox/container"
	"github.com/tmarsden/strongbox/vault"
)

var restoreForce bool

var restoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Replace the container with a restore point",
	Long: `Replaces the current container with a restore point from 'strongbox
restores', or with any container file given as an absolute path. The
restore point must decrypt before it is copied; the replaced container
becomes a restore point itself.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "skip the confirmation prompt")
}

func runRestore(cmd *cobra.Command, args []string) error {
	name := args[0]

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	data, err := a.store.LoadRestorePoint(name)
	if err != nil {
		return err
	}

	password, err := promptPassword("Enter password for the restore point: ", os.Stdout)
	if err != nil {
		return err
	}

	salt, rounds := container.ParseParams(data)
	stop := startSpinner("Checking restore point...")
	session, err := vault.Unlock(cmd.Context(), password, salt, rounds,
		vault.WithSessionLogger(a.logger))
	if err != nil {
		stop()
		return err
	}
	defer session.Lock()
	ci, err := session.CipherInfo()
	if err != nil {
		stop()
		return err
	}
	secrets, _, err := container.Decode(data, password, ci)
	ci.Destroy()
	stop()
	if err != nil {
		return fmt.Errorf("restore point does not open: %w", err)
	}

	if !restoreForce {
		reader := bufio.NewReader(os.Stdin)
		question := fmt.Sprintf("Replace the current vault with %s (%d entries)?", name, len(secrets))
		if !confirm(reader, question, os.Stdout) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := a.store.Restore(name); err != nil {
		return err
	}

	fmt.Printf("%s restored %s\n", color.GreenString("✓"), name)
	return nil
}
