package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/homeledger/homeledger/internal/runlog"
)

func newRunsCommand(configPath *string) *cobra.Command {
	var userID string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent reconcile runs from the run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Log.RunLog == "" {
				return errors.New("run log is disabled (log.run_log is empty)")
			}

			entries, err := runlog.Read(cfg.Log.RunLog)
			if err != nil {
				return err
			}

			var shown []runlog.Entry
			for _, e := range entries {
				if userID == "" || e.UserID == userID {
					shown = append(shown, e)
				}
			}
			if limit > 0 && len(shown) > limit {
				shown = shown[len(shown)-limit:]
			}

			out := cmd.OutOrStdout()
			if len(shown) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			for _, e := range shown {
				fmt.Fprintf(out, "%s  %-8s %-18s %-10s %s\n",
					e.Timestamp.Format(time.RFC3339), e.UserID, e.Operation, e.AccountID, e.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "only runs for this user")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many runs (0 for all)")

	return cmd
}
