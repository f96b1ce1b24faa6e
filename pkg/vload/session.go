package vload

import (
	"context"
	"errors"
	"io"
)

// ErrNoRows is returned by Row.Scan when the query selected no rows.
// Session implementations translate their driver's no-rows error to it.
var ErrNoRows = errors.New("no rows in result set")

// Connector opens database sessions. Implementations are safe for concurrent use.
type Connector interface {
	// Connect opens a new session with an active transaction.
	// The caller must Close the session when done.
	Connect(ctx context.Context) (Session, error)
}

// Session is one database connection holding one open transaction at a time.
// Like a DB-API connection, a new transaction begins implicitly after Commit
// and Reset, so the session is always ready for the next statement unless it
// is poisoned or closed.
//
// State transitions:
//
//	Active --statement fails, dialect aborts txn--> Poisoned
//	Poisoned --Reset--> Active
//	any --Close--> Closed
//
// Thread-Safety: NOT safe for concurrent use.
type Session interface {
	// Exec executes a statement without returning rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// QueryRow executes a query expected to return at most one row.
	// Errors are deferred until Row.Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// CopyFrom streams r to the server as the STDIN of a COPY statement and
	// returns the number of rows the server reports as loaded.
	CopyFrom(ctx context.Context, sql string, r io.Reader) (int64, error)

	// Commit commits the current transaction and begins a new one.
	Commit(ctx context.Context) error

	// Reset rolls back the current transaction, discarding uncommitted work,
	// and begins a new one. It is the only way out of TxPoisoned.
	Reset(ctx context.Context) error

	// State reports the transaction state.
	State() TxState

	// Dialect returns the SQL dialect of the session's database.
	Dialect() Dialect

	// Close rolls back any open transaction and releases the connection.
	Close(ctx context.Context) error
}

// Row represents a single row returned by QueryRow.
type Row interface {
	// Scan reads the values from the row into dest values.
	// Returns ErrNoRows if no row was found.
	Scan(dest ...any) error
}

// Dialect renders the statements whose syntax differs between databases.
type Dialect interface {
	// Name identifies the dialect.
	Name() DialectName

	// Placeholder returns the bind parameter marker for the n-th (1-based) argument.
	Placeholder(n int) string

	// CopyStatement renders a COPY ... FROM STDIN statement for delimited text.
	CopyStatement(table string, columns []string, separator string) string

	// PoisonsTransaction reports whether a failed statement aborts the
	// enclosing transaction until it is rolled back.
	PoisonsTransaction() bool

	// MarkerTableDDL renders the CREATE TABLE for a marker table whose
	// update_id primary key is enforced on insert. With dbTimestamps the
	// inserted column defaults to NOW().
	MarkerTableDDL(table string, dbTimestamps bool) string
}
