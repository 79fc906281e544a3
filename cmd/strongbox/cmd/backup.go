package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy the container to the backup path",
	Long: `Copies the encrypted container to the configured backup path, normally
on separate storage. The copy stays encrypted; restoring it needs the
vault password.`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	a.store.Cleanup()
	if !a.store.Exists() {
		return fmt.Errorf("no vault at %s", a.cfg.DataDir)
	}
	data, err := a.store.Load()
	if err != nil {
		return err
	}
	if err := a.store.Backup(data); err != nil {
		return err
	}
	if err := a.prefs.SetLastBackup(); err != nil {
		a.logger.Warn("recording backup time", zap.Error(err))
	}

	fmt.Printf("%s backed up to %s\n", color.GreenString("✓"), a.store.BackupPath())
	return nil
}
