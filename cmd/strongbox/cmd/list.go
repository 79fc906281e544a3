package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all secrets",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
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

	if v.collection.Len() == 0 {
		fmt.Println("The vault is empty.")
		return nil
	}

	fmt.Printf("%-28s  %-20s  %s\n", "DESCRIPTION", "USERNAME", "LAST CHANGED")
	for _, s := range v.collection.Active() {
		fmt.Printf("%-28s  %-20s  %s\n",
			s.Description(), s.Username(), formatTime(s.LastChanged()))
	}
	return nil
}
