package db

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	vertigo "github.com/vertica/vertica-sql-go"
	"github.com/vvka-141/vload/pkg/vload"
)

// SQLSTATE codes the load protocol reacts to.
// Vertica: https://docs.vertica.com/latest/en/sql-reference/error-codes/
// PostgreSQL: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	// Class 42 - Syntax Error or Access Rule Violation
	codeVerticaUndefinedRelation = "42V01"
	codePostgresUndefinedTable   = "42P01"
	codeDuplicateObject          = "42710"
	codePostgresDuplicateTable   = "42P07"

	// Class 3D - Invalid Catalog Name
	codeInvalidCatalogName = "3D000"
)

// verticaStatePattern extracts a SQLSTATE from error text that lost its
// *vertigo.VError, e.g. `ERROR 4566: [42V01] Relation "foo" does not exist`.
var verticaStatePattern = regexp.MustCompile(`\[([0-9A-Z]{5})\]`)

// SQLState returns the SQLSTATE carried by err, or "" if none is found.
func SQLState(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var vErr *vertigo.VError
	if errors.As(err, &vErr) {
		return vErr.SQLState
	}

	if m := verticaStatePattern.FindStringSubmatch(err.Error()); m != nil {
		return m[1]
	}
	return ""
}

// Classify attaches the vload sentinel matching err's SQLSTATE while keeping
// err reachable. Errors of any other class are returned unmodified.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}

	code := SQLState(err)
	switch {
	case code == codeVerticaUndefinedRelation || code == codePostgresUndefinedTable:
		return fmt.Errorf("%w: %w", vload.ErrRelationMissing, err)
	case code == codeDuplicateObject || code == codePostgresDuplicateTable:
		return fmt.Errorf("%w: %w", vload.ErrDuplicateObject, err)
	case isConnectionState(code):
		return fmt.Errorf("%w: %w", vload.ErrConnection, err)
	case code != "":
		return err
	}

	// Driver errors without a recognizable code
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "does not exist") &&
		(strings.Contains(msg, "relation") || strings.Contains(msg, "table")):
		return fmt.Errorf("%w: %w", vload.ErrRelationMissing, err)
	case strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %w", vload.ErrDuplicateObject, err)
	}
	return err
}

func isClassified(err error) bool {
	return errors.Is(err, vload.ErrRelationMissing) ||
		errors.Is(err, vload.ErrDuplicateObject) ||
		errors.Is(err, vload.ErrConnection) ||
		errors.Is(err, vload.ErrTransactionPoisoned) ||
		errors.Is(err, vload.ErrSessionClosed)
}

// isConnectionState reports SQLSTATE classes meaning the session cannot be used:
// connection exceptions (08), rejected credentials (28), unknown database (3D).
func isConnectionState(code string) bool {
	return strings.HasPrefix(code, "08") ||
		strings.HasPrefix(code, "28") ||
		code == codeInvalidCatalogName
}
