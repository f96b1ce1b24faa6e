package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/vload/pkg/vload"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a statement exactly once",
	Long: `Query runs one SQL statement as a unit of work and records it in the
marker table in the same transaction. A unit already recorded is skipped.

Examples:
  vload query -d vmart --table daily --update-id dedupe_2024-01-01 \
    --sql "DELETE FROM daily WHERE day = '2024-01-01' AND source = 'stale'"

  vload query -d vmart --table daily --update-id rollup_2024-01-01 --file rollup.sql`,
	Args: NoArgs,
	RunE: runQuery,
}

type queryFlagValues struct {
	table    string
	updateID string
	sql      string
	file     string
}

var queryFlags queryFlagValues

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&queryFlags.table, "table", "",
		"Table recorded as the target of this unit of work")
	queryCmd.Flags().StringVar(&queryFlags.updateID, "update-id", "",
		"Unique id of this unit of work, recorded in the marker table")
	queryCmd.Flags().StringVar(&queryFlags.sql, "sql", "",
		"Statement to run")
	queryCmd.Flags().StringVarP(&queryFlags.file, "file", "f", "",
		"Read the statement from a file instead of --sql")
	queryCmd.MarkFlagsMutuallyExclusive("sql", "file")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := requireFlag(cmd, "table", queryFlags.table, "--table daily --update-id id --sql \"...\""); err != nil {
		return err
	}
	if err := requireFlag(cmd, "update-id", queryFlags.updateID, "--table daily --update-id rollup_2024-01-01 --sql \"...\""); err != nil {
		return err
	}

	sql := queryFlags.sql
	if queryFlags.file != "" {
		data, err := os.ReadFile(queryFlags.file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %v: %w", queryFlags.file, err, vload.ErrInvalidConfig)
		}
		sql = string(data)
	}
	if err := requireFlag(cmd, "sql", sql, "--table daily --update-id id --sql \"UPDATE daily SET ...\""); err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	job := &vload.QueryJob{
		UpdateID: queryFlags.updateID,
		Table:    queryFlags.table,
		SQL:      sql,
	}
	return a.run(func(ctx context.Context) error {
		outcome, err := a.query.Run(ctx, job)
		if err != nil {
			return unitFailed("query", err)
		}
		if outcome.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "skipped\t%s\n", job.UpdateID)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "done\t%s\n", job.UpdateID)
		return nil
	})
}
