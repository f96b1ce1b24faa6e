package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/vload/internal/config"
	"github.com/vvka-141/vload/internal/transform"
	"github.com/vvka-141/vload/pkg/vload"
)

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Load delimited rows into a table exactly once",
	Long: `Copy loads delimited text from a file or stdin into a table as one unit of work.

The copy command:
1. Skips the load if --update-id is already recorded in the marker table
2. Stages the rows in a local file, writing NULL for empty fields and --null-value matches
3. Runs the init hooks (--truncate, --init-sql), then COPY ... FROM STDIN
4. Creates the table once if it does not exist, then retries the COPY
5. Runs --post-sql, records the update id and commits everything together

Columns:
  --columns takes a comma separated list of names, or name:type pairs when
  vload may have to create the table itself:
    --columns metric,value
    --columns metric:varchar(64),value:numeric(10,2)

Examples:
  # Load a TSV file
  vload copy -d vmart --table metrics --columns metric:varchar,value:int \
    --update-id metrics_2024-01-01 --input metrics.tsv

  # Replace the table contents from stdin
  extract.sh | vload copy -d vmart --table daily --columns day,total \
    --update-id daily_2024-01-01 --truncate`,
	Args: NoArgs,
	RunE: runCopy,
}

type copyFlagValues struct {
	table          string
	columns        string
	updateID       string
	input          string
	separator      string
	nullValues     []string
	createTableSQL string
	initSQL        []string
	postSQL        []string
	truncate       bool
}

var copyFlags copyFlagValues

func init() {
	rootCmd.AddCommand(copyCmd)

	copyCmd.Flags().StringVar(&copyFlags.table, "table", "",
		"Target table, optionally schema-qualified")
	copyCmd.Flags().StringVar(&copyFlags.columns, "columns", "",
		"Target columns in input order: name,... or name:type,...")
	copyCmd.Flags().StringVar(&copyFlags.updateID, "update-id", "",
		"Unique id of this unit of work, recorded in the marker table")
	copyCmd.Flags().StringVarP(&copyFlags.input, "input", "i", "-",
		"Input file, - for stdin")
	copyCmd.Flags().StringVar(&copyFlags.separator, "separator", "",
		"Field separator of the input and the staged rows\n"+
			"(default: vload.yaml copy.column_separator or tab; \\t is accepted)")
	copyCmd.Flags().StringSliceVar(&copyFlags.nullValues, "null-value", nil,
		"Field values loaded as NULL (can be specified multiple times)\n"+
			"Empty fields are always NULL. Example: --null-value '\\N' --null-value NA")
	copyCmd.Flags().StringVar(&copyFlags.createTableSQL, "create-table-sql", "",
		"Statement creating the table when it does not exist\n"+
			"(default: CREATE TABLE from name:type columns)")
	copyCmd.Flags().StringArrayVar(&copyFlags.initSQL, "init-sql", nil,
		"Statement run before the COPY in the same transaction (repeatable)")
	copyCmd.Flags().StringArrayVar(&copyFlags.postSQL, "post-sql", nil,
		"Statement run after the COPY in the same transaction (repeatable)")
	copyCmd.Flags().BoolVar(&copyFlags.truncate, "truncate", false,
		"Truncate the table before the COPY")
}

func runCopy(cmd *cobra.Command, args []string) error {
	if err := requireFlag(cmd, "table", copyFlags.table, "--table metrics --columns metric,value --update-id id"); err != nil {
		return err
	}
	if err := requireFlag(cmd, "columns", copyFlags.columns, "--table metrics --columns metric,value --update-id id"); err != nil {
		return err
	}
	if err := requireFlag(cmd, "update-id", copyFlags.updateID, "--table metrics --columns metric,value --update-id metrics_2024-01-01"); err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	input, closeInput, err := openInput(copyFlags.input, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer closeInput()

	job, err := buildLoadJob(copyFlags, a.project, input)
	if err != nil {
		return err
	}

	return a.run(func(ctx context.Context) error {
		outcome, err := a.copy.Run(ctx, job)
		if err != nil {
			return unitFailed("copy", err)
		}
		if outcome.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "skipped\t%s\n", job.UpdateID)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded\t%s\t%d\n", job.UpdateID, outcome.Result.Rows)
		return nil
	})
}

// buildLoadJob turns the copy flags and vload.yaml copy section into a LoadJob
// reading rows from input.
func buildLoadJob(flags copyFlagValues, projectCfg *config.ProjectConfig, input io.Reader) (*vload.LoadJob, error) {
	columns, err := parseColumnsFlag(flags.columns)
	if err != nil {
		return nil, err
	}

	separator := flags.separator
	var nullValues []string
	if projectCfg != nil {
		if separator == "" {
			separator = projectCfg.Copy.ColumnSeparator
		}
		nullValues = append(nullValues, projectCfg.Copy.NullValues...)
	}
	separator = unescapeSeparator(separator)
	if separator == "" {
		separator = vload.DefaultColumnSeparator
	}
	nullValues = append(nullValues, flags.nullValues...)

	nulls := make([]any, len(nullValues))
	for i, v := range nullValues {
		nulls[i] = v
	}

	var initStmts []string
	if flags.truncate {
		initStmts = append(initStmts, "TRUNCATE TABLE "+flags.table)
	}
	initStmts = append(initStmts, flags.initSQL...)

	job := &vload.LoadJob{
		UpdateID:   flags.updateID,
		Table:      flags.table,
		Columns:    columns,
		Rows:       transform.NewTSVSource(input, separator),
		Separator:  separator,
		NullValues: nulls,
		InitCopy:   sqlHook(initStmts),
		PostCopy:   sqlHook(flags.postSQL),
	}
	if flags.createTableSQL != "" {
		createSQL := flags.createTableSQL
		job.CreateTable = vload.TableCreatorFunc(func(ctx context.Context, s vload.Session, _ string, _ []vload.Column) error {
			return s.Exec(ctx, createSQL)
		})
	}
	return job, nil
}

// parseColumnsFlag splits "a,b" or "a:int,b:numeric(10,2)" into columns.
// Commas inside parentheses belong to the type.
func parseColumnsFlag(spec string) ([]vload.Column, error) {
	var cols []vload.Column
	for _, entry := range splitTopLevel(spec) {
		entry = strings.TrimSpace(entry)
		name, typ, _ := strings.Cut(entry, ":")
		cols = append(cols, vload.Column{Name: strings.TrimSpace(name), Type: strings.TrimSpace(typ)})
	}
	return vload.ParseColumns(cols)
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func unescapeSeparator(sep string) string {
	switch sep {
	case `\t`:
		return "\t"
	case `\x01`:
		return "\x01"
	}
	return sep
}

// sqlHook runs stmts in order; nil when there is nothing to run.
func sqlHook(stmts []string) vload.CopyHook {
	var nonEmpty []string
	for _, s := range stmts {
		if strings.TrimSpace(s) != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	return vload.CopyHookFunc(func(ctx context.Context, s vload.Session) error {
		for _, stmt := range nonEmpty {
			if err := s.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input %s: %v: %w", path, err, vload.ErrInvalidConfig)
	}
	return f, func() { f.Close() }, nil
}
