package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tmarsden/strongbox/csvio"
	"github.com/tmarsden/strongbox/vault"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import secrets from CSV",
	Long: `Reads secrets from a CSV file. The native export layout and the OI Safe
layout are detected by their headers; anything else is read in the
native column order. Existing secrets with a matching description are
overwritten, new ones are added.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
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

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	imported, recognized, err := csvio.Import(f)
	f.Close()
	if err != nil {
		return err
	}
	if !recognized {
		fmt.Printf("%s unrecognized header, columns read as Description, Id, PIN, Email, Notes\n",
			color.YellowString("!"))
	}
	if len(imported) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	added, updated := 0, 0
	for _, in := range imported {
		if existing := v.collection.Find(in.Description()); existing != nil {
			existing.Update(in, vault.EntryChanged)
			updated++
		} else {
			v.collection.Insert(in)
			added++
		}
	}

	if err := a.save(v); err != nil {
		return err
	}

	fmt.Printf("%s imported %d secrets (%d new, %d updated)\n",
		color.GreenString("✓"), added+updated, added, updated)
	return nil
}
