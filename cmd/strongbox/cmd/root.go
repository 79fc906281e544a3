package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dataDirFlag    string
	backupPathFlag string
	debugFlag      bool
)

var rootCmd = &cobra.Command{
	Use:   "strongbox",
	Short: "Strongbox is an encrypted password vault",
	Long: `An encrypted local password vault. Secrets live in a single container
file protected by a slow key derivation; every save keeps the previous
container as a restore point.
Complete documentation is available at https://github.com/tmarsden/strongbox`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "",
		"Directory holding the vault (default $STRONGBOX_DATA_DIR or ~/.strongbox)")
	rootCmd.PersistentFlags().StringVar(&backupPathFlag, "backup-path", "",
		"File the backup command writes (default $STRONGBOX_BACKUP_PATH)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"Enable debug logging")
}
