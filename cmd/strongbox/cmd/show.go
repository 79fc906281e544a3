package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	showPassword bool
	showLog      bool
)

var showCmd = &cobra.Command{
	Use:   "show <description>",
	Short: "Show one secret",
	Long: `Prints the stored fields of one secret. The password itself is only
printed with --password; reading it is recorded in the secret's access
log, like every password view.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVarP(&showPassword, "password", "p", false, "print the password")
	showCmd.Flags().BoolVar(&showLog, "log", false, "print the access log")
}

func runShow(cmd *cobra.Command, args []string) error {
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

	last := s.MostRecentAccess()
	fmt.Printf("Description: %s\n", s.Description())
	fmt.Printf("Username:    %s\n", s.Username())
	fmt.Printf("Email:       %s\n", s.Email())
	fmt.Printf("Note:        %s\n", s.Note())
	fmt.Printf("Last access: %s (%s)\n",
		formatTime(time.UnixMilli(last.Time)), last.Type)

	if showPassword {
		// Reading the password appends a VIEWED entry, which has to
		// reach the container like any other change.
		fmt.Printf("Password:    %s\n", s.Password())
		if err := a.save(v); err != nil {
			return err
		}
	}

	if showLog {
		fmt.Println("\nAccess log:")
		for _, e := range s.AccessLog() {
			fmt.Printf("  %s  %s\n", formatTime(time.UnixMilli(e.Time)), e.Type)
		}
	}
	return nil
}
