package vload

import (
	"errors"
	"strings"
)

// Sentinel errors for the failure classes of the load protocol.
// Callers distinguish them with errors.Is(); the driver error that caused a
// classified failure stays reachable through errors.As().
//
// Example usage:
//
//	exists, err := store.Exists(ctx, session, updateID)
//	if errors.Is(err, vload.ErrConnection) {
//	    // database unreachable or credentials rejected
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid
	// (malformed columns, missing table, bad separator). Always raised before any I/O.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnection indicates the database endpoint is unreachable or rejected the credentials.
	ErrConnection = errors.New("connection failed")

	// ErrRelationMissing indicates a statement referenced a table that does not exist.
	ErrRelationMissing = errors.New("relation does not exist")

	// ErrDuplicateObject indicates a CREATE statement hit an object that already exists.
	ErrDuplicateObject = errors.New("object already exists")

	// ErrConsistency indicates a marker row was inserted and committed but could not be read back.
	ErrConsistency = errors.New("marker consistency check failed")

	// ErrTransactionPoisoned indicates a statement was issued on a session whose
	// transaction failed and has not been reset.
	ErrTransactionPoisoned = errors.New("transaction is poisoned, reset required")

	// ErrExecutionFailed indicates a load or query statement failed on the server.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrSessionClosed indicates the session was used after Close.
	ErrSessionClosed = errors.New("session is closed")

	// ErrUsage indicates the command line was malformed (missing arguments, unknown flags).
	ErrUsage = errors.New("usage error")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrUsage):
		return ExitUsageError
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrConnection):
		return ExitConnectionError
	case errors.Is(err, ErrConsistency):
		return ExitConsistencyError
	case errors.Is(err, ErrExecutionFailed),
		errors.Is(err, ErrRelationMissing),
		errors.Is(err, ErrTransactionPoisoned):
		return ExitExecutionFailed
	}

	// Check for common connection error patterns
	errStr := err.Error()
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	// cobra reports argument and flag errors as plain strings
	for _, pattern := range usagePatterns {
		if strings.Contains(errStr, pattern) {
			return ExitUsageError
		}
	}

	return ExitGeneralError
}

var usagePatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"required flag",
	"invalid argument",
	"if any flags in the group",
}
