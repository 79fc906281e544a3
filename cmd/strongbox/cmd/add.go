package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tmarsden/strongbox/vault"
)

var (
	addUsername string
	addEmail    string
	addNote     string
)

var addCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Add a new secret",
	Long: `Adds a secret under a new description. The password is read from the
terminal without echo; leave it empty for entries that only carry a
username or a note.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addUsername, "username", "u", "", "account username")
	addCmd.Flags().StringVarP(&addEmail, "email", "e", "", "account email")
	addCmd.Flags().StringVarP(&addNote, "note", "n", "", "free-form note")
}

func runAdd(cmd *cobra.Command, args []string) error {
	description := args[0]

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

	if v.collection.Find(description) != nil {
		return fmt.Errorf("a secret named %q already exists", description)
	}

	password, err := promptPassword("Password (empty for none): ", os.Stdout)
	if err != nil {
		return err
	}
	if password != "" {
		fmt.Printf("Password strength: %s\n", strengthLabel(vault.CheckStrength(password)))
	}

	s := vault.NewSecret(description)
	s.SetUsername(addUsername)
	s.SetEmail(addEmail)
	s.SetNote(addNote)
	if password != "" {
		// The initial password belongs to the CREATED entry; only later
		// changes are logged separately.
		s.SetPasswordSilent(password)
	}

	v.collection.Insert(s)
	if err := a.save(v); err != nil {
		return err
	}

	fmt.Printf("%s added %q\n", color.GreenString("✓"), description)
	return nil
}
