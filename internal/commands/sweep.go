package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCommand(configPath *string) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove duplicate transactions across all of a user's accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUserFlag(userID); err != nil {
				return err
			}

			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.svc.CleanupDuplicates(a.withLogger(cmd.Context()), userID)
			if err != nil {
				return fmt.Errorf("sweeping duplicates: %w", err)
			}
			fmt.Println(resp.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to sweep (required)")

	return cmd
}
