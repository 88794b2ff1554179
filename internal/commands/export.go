package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/homeledger/homeledger/internal/export"
	"github.com/homeledger/homeledger/internal/reconcile"
)

func newExportCommand(configPath *string) *cobra.Command {
	var userID string
	var out string
	var q reconcile.ListQuery

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's transactions as CSV",
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

			txns, err := a.svc.ListTransactions(a.withLogger(cmd.Context()), userID, q)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if err := export.WriteTransactions(w, txns); err != nil {
				return err
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transactions to %s\n", len(txns), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to export (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&q.AccountID, "account", "", "only this bank account")
	cmd.Flags().StringVar(&q.StartDate, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&q.EndDate, "to", "", "last day, YYYY-MM-DD")

	return cmd
}
