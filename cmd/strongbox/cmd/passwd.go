package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tmarsden/strongbox/vault"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the vault password",
	Long: `Changes the master password. The key is re-derived with a fresh salt
and a work factor recalibrated for this machine, and the container is
re-encrypted.`,
	Args: cobra.NoArgs,
	RunE: runPasswd,
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}

func runPasswd(cmd *cobra.Command, args []string) error {
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

	password, err := promptNewPassword(os.Stdout)
	if err != nil {
		return err
	}

	stop := startSpinner("Re-encrypting vault...")
	session, err := vault.Unlock(cmd.Context(), password, nil, 0,
		vault.WithSessionLogger(a.logger))
	stop()
	if err != nil {
		return err
	}

	// The old key is done; the deferred Lock then hits the new session.
	v.session.Lock()
	v.session = session

	if err := a.save(v); err != nil {
		return err
	}

	fmt.Printf("%s password changed\n", color.GreenString("✓"))
	return nil
}
