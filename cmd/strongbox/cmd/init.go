package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tmarsden/strongbox/vault"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new vault",
	Long: `Creates an empty encrypted container in the data directory. The key
derivation work factor is calibrated for this machine, so the first
save takes a moment.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	a.store.Cleanup()
	if a.store.Exists() {
		return fmt.Errorf("a vault already exists at %s", a.cfg.DataDir)
	}

	password, err := promptNewPassword(os.Stdout)
	if err != nil {
		return err
	}

	stop := startSpinner("Calibrating key derivation for this machine...")
	session, err := vault.Unlock(cmd.Context(), password, nil, 0,
		vault.WithSessionLogger(a.logger))
	stop()
	if err != nil {
		return err
	}
	defer session.Lock()

	// The empty container is written immediately, so a crash before the
	// first secret still leaves a loadable vault.
	v := &unlockedVault{session: session, collection: vault.NewCollection()}
	if err := a.save(v); err != nil {
		return err
	}

	fmt.Printf("%s vault created at %s\n", color.GreenString("✓"), a.store.ContainerPath())
	return nil
}
