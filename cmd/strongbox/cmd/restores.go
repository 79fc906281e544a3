package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoresCmd = &cobra.Command{
	Use:   "restores",
	Short: "List available restore points",
	Long: `Lists everything 'strongbox restore' can bring back: the backup file
when one exists, then the rotated containers kept by previous saves,
most recent first.`,
	Args: cobra.NoArgs,
	RunE: runRestores,
}

func init() {
	rootCmd.AddCommand(restoresCmd)
}

func runRestores(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	points := a.store.RestorePoints()
	if len(points) == 0 {
		fmt.Println("No restore points.")
		return nil
	}
	for _, p := range points {
		fmt.Println(p)
	}
	return nil
}
