package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether units of work are complete",
	Long: `Status prints "complete" or "pending" for each --update-id.

A missing marker table means nothing has completed yet and reports pending.
The exit code is 0 in both cases, so schedulers branch on the output.

Examples:
  vload status -d vmart --update-id metrics_2024-01-01
  vload status -d vmart --update-id a --update-id b`,
	Args: NoArgs,
	RunE: runStatus,
}

var statusUpdateIDs []string

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringArrayVar(&statusUpdateIDs, "update-id", nil,
		"Update id to check (repeatable)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(statusUpdateIDs) == 0 {
		return requireFlag(cmd, "update-id", "", "--update-id metrics_2024-01-01")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	return a.run(func(ctx context.Context) error {
		for _, id := range statusUpdateIDs {
			done, err := a.status.Exists(ctx, id)
			if err != nil {
				return fmt.Errorf("status of %s: %w", id, err)
			}
			state := "pending"
			if done {
				state = "complete"
			}
			if len(statusUpdateIDs) == 1 {
				fmt.Fprintln(cmd.OutOrStdout(), state)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, state)
			}
		}
		return nil
	})
}
