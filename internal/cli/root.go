package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vvka-141/vload/pkg/vload"
)

const banner = `vload: idempotent bulk loads into Vertica`

var rootCmd = &cobra.Command{
	Use:   "vload",
	Short: "Idempotent bulk loads into Vertica",
	Long: banner + `

vload stages rows from a delimited file, streams them into a table with
COPY ... FROM STDIN and records the unit of work in a marker table inside the
same transaction. A unit whose update id is already marked is skipped, so a
scheduler can rerun any command safely.

Exit Codes:
  0  - Success (including units skipped as already complete)
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  13 - COPY or query execution failed
  15 - Marker written but not visible on read-back`,
	SilenceUsage:  true,
}

// globalFlagValues holds the persistent flags shared by every command that
// talks to the database.
type globalFlagValues struct {
	connection       connectionFlags
	markerTable      string
	clientTimestamps bool
	stagingDir       string
	metricsTextfile  string
	configDir        string
	timeout          time.Duration
}

var globalFlags globalFlagValues

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for vload")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")

	flags := rootCmd.PersistentFlags()
	conn := &globalFlags.connection

	flags.StringVar(&conn.connection, "connection", "",
		"Connection URI, mutually exclusive with --host/--port/--username.\n"+
			"Alternative: $VLOAD_CONNECTION_STRING\n"+
			"Examples: vertica://dbadmin@localhost:5433/vmart\n"+
			"          postgresql://user@localhost:5432/postgres")
	flags.StringVarP(&conn.host, "host", "h", "",
		"Database host, may carry a port (db1:5433)\n"+
			"Precedence: --host > $VLOAD_HOST > vload.yaml > localhost")
	flags.IntVarP(&conn.port, "port", "p", 0,
		"Database port\n"+
			"Precedence: --port > $VLOAD_PORT > vload.yaml > dialect default (5433 vertica, 5432 postgres)")
	flags.StringVarP(&conn.username, "username", "U", "",
		"Database user (default: $VLOAD_USER)")
	flags.StringVarP(&conn.database, "database", "d", "",
		"Database name (overrides the database of --connection)")
	flags.StringVar(&conn.dialect, "dialect", "",
		"Target database: vertica|postgres (default: $VLOAD_DIALECT or vertica)")
	flags.StringVar(&conn.tlsMode, "tls-mode", "",
		"TLS mode passed to the driver (tlsmode for Vertica, sslmode for PostgreSQL)")
	flags.BoolVarP(&conn.noPassword, "no-password", "w", false,
		"Never prompt for a password (use $VLOAD_PASSWORD or the connection string)")

	flags.StringVar(&globalFlags.markerTable, "marker-table", "",
		"Table recording completed units of work (default: "+vload.DefaultMarkerTable+")")
	flags.BoolVar(&globalFlags.clientTimestamps, "client-timestamps", false,
		"Supply the marker's inserted timestamp from the client instead of DEFAULT NOW()")
	flags.StringVar(&globalFlags.stagingDir, "staging-dir", "",
		"Directory for staged row files (default: OS temp dir)")
	flags.StringVar(&globalFlags.metricsTextfile, "metrics-textfile", "",
		"Write Prometheus metrics in text format to this file on exit\n"+
			"(for the node_exporter textfile collector)")
	flags.StringVar(&globalFlags.configDir, "config-dir", ".",
		"Directory containing vload.yaml and .env")

	// Catastrophic failure protection, not a statement timeout
	flags.DurationVar(&globalFlags.timeout, "timeout", vload.DefaultTimeout,
		"Upper bound for the whole command\n"+
			"Examples: 30s, 5m, 1h30m")

	_ = rootCmd.RegisterFlagCompletionFunc("dialect", completeDialects)
	_ = rootCmd.RegisterFlagCompletionFunc("tls-mode", completeTLSModes)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", vload.ErrUsage, err)
	})
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
