package vload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess          = 0  // Load/query completed or already complete
	ExitGeneralError     = 1  // Unknown or unclassified error
	ExitUsageError       = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic            = 3  // Internal panic (unexpected crash)
	ExitConfigError      = 10 // Invalid configuration or parameters
	ExitConnectionError  = 11 // Failed to connect to database
	ExitExecutionFailed  = 13 // COPY or query execution failed
	ExitConsistencyError = 15 // Marker written but not visible on read-back
)

const (
	// DefaultMarkerTable is the name of the table recording completed units of work.
	DefaultMarkerTable = "table_updates"

	// DefaultColumnSeparator separates fields of a staged row.
	DefaultColumnSeparator = "\t"

	// ProgressInterval is the number of staged rows between progress log lines.
	ProgressInterval = 100000

	// DefaultVerticaPort is the Vertica client port.
	DefaultVerticaPort = 5433

	// DefaultPostgresPort is the PostgreSQL client port.
	DefaultPostgresPort = 5432

	// DefaultHost is used when no host is configured.
	DefaultHost = "localhost"

	// DefaultTimeout bounds a whole CLI invocation.
	DefaultTimeout = 30 * time.Minute

	// MaxErrorPreviewLength is the maximum number of characters of a SQL
	// statement quoted in error messages.
	MaxErrorPreviewLength = 200
)
