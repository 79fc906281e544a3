package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tmarsden/strongbox/csvio"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export all secrets to CSV",
	Long: `Writes every active secret to a CSV file, passwords included, in the
layout Description, Id, PIN, Email, Notes. The file is plain text:
anyone who can read it can read every password in the vault.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
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

	f, err := os.OpenFile(args[0], os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := csvio.Export(f, v.collection.Active()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing export file: %w", err)
	}

	// Every exported password got an EXPORTED log entry; persist them.
	if err := a.save(v); err != nil {
		return err
	}

	fmt.Printf("%s exported %d secrets to %s\n",
		color.GreenString("✓"), v.collection.Len(), args[0])
	fmt.Printf("%s the file is unencrypted; delete it after use\n", color.YellowString("!"))
	return nil
}
