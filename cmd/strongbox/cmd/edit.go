package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tmarsden/strongbox/vault"
)

var editCmd = &cobra.Command{
	Use:   "edit <description>",
	Short: "Edit an existing secret",
	Long: `Prompts for each field, showing the current value. Press Enter to keep
a field, enter "-" to clear it. The password is only changed after an
explicit yes.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
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

	s := v.collection.Find(args[0])
	if s == nil {
		return fmt.Errorf("no secret named %q", args[0])
	}

	reader := bufio.NewReader(os.Stdin)
	apply := func(label, current string, set func(string)) error {
		line, err := promptLine(reader, fmt.Sprintf("%s [%s]", label, current), os.Stdout)
		if err != nil {
			return err
		}
		switch line {
		case "":
		case "-":
			set("")
		default:
			set(line)
		}
		return nil
	}

	if err := apply("Username", s.Username(), s.SetUsername); err != nil {
		return err
	}
	if err := apply("Email", s.Email(), s.SetEmail); err != nil {
		return err
	}
	if err := apply("Note", s.Note(), s.SetNote); err != nil {
		return err
	}

	if confirm(reader, "Change the password?", os.Stdout) {
		password, err := promptPassword("New password: ", os.Stdout)
		if err != nil {
			return err
		}
		fmt.Printf("Password strength: %s\n", strengthLabel(vault.CheckStrength(password)))
		s.SetPassword(password)
	}

	if err := a.save(v); err != nil {
		return err
	}

	fmt.Printf("%s updated %q\n", color.GreenString("✓"), s.Description())
	return nil
}
