package vload

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// LoadJob describes one bulk load: a unit of work identified by UpdateID that
// copies the rows of Rows into Table.
type LoadJob struct {
	// UpdateID uniquely identifies the unit of work in the marker table.
	UpdateID string

	// Table is the target table, optionally schema-qualified.
	Table string

	// Columns is the column specification, see ParseColumns for accepted shapes.
	Columns any

	// Rows produces field tuples ordered to match Columns.
	Rows RowSource

	// Separator joins fields of a staged row. Empty means DefaultColumnSeparator.
	Separator string

	// NullValues are field values staged as empty strings (SQL NULL).
	// nil is always treated as null. Ignored when Mapper is set.
	NullValues []any

	// Mapper overrides the default null-substituting value mapper.
	Mapper ValueMapper

	// InitCopy runs before the COPY on the load's session.
	InitCopy CopyHook

	// PostCopy runs after the COPY on the load's session.
	PostCopy CopyHook

	// CreateTable is invoked once if the target table does not exist.
	// When nil, a CREATE TABLE is derived from typed Columns.
	CreateTable TableCreator
}

// EffectiveSeparator returns Separator or the default.
func (j *LoadJob) EffectiveSeparator() string {
	if j.Separator == "" {
		return DefaultColumnSeparator
	}
	return j.Separator
}

// Validate checks the job and returns the normalized columns.
// It performs no I/O and returns a multi-error if multiple validation failures occur.
func (j *LoadJob) Validate() ([]Column, error) {
	var errs []error

	if strings.TrimSpace(j.UpdateID) == "" {
		errs = append(errs, fmt.Errorf("UpdateID is required: %w", ErrInvalidConfig))
	}
	if strings.TrimSpace(j.Table) == "" {
		errs = append(errs, fmt.Errorf("table and columns need to be specified: %w", ErrInvalidConfig))
	}
	if j.Rows == nil {
		errs = append(errs, fmt.Errorf("Rows is required: %w", ErrInvalidConfig))
	}

	sep := j.EffectiveSeparator()
	if utf8.RuneCountInString(sep) != 1 || len(sep) != 1 || sep == "\n" || sep == "\r" || sep == "\\" {
		errs = append(errs, fmt.Errorf("column separator %q must be a single one-byte character other than newline or backslash: %w",
			sep, ErrInvalidConfig))
	} else if strings.ContainsAny(sep, reservedSeparators) {
		errs = append(errs, fmt.Errorf("column separator %q is a COPY escape character (a-z, 0-9, '.', 'N'): %w",
			sep, ErrInvalidConfig))
	}

	cols, err := ParseColumns(j.Columns)
	if err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cols, nil
}

// reservedSeparators are bytes that form COPY text escapes (\n, \t, \N,
// octal \123, end-of-data \.) once the encoder puts a backslash before them.
const reservedSeparators = "abcdefghijklmnopqrstuvwxyz0123456789.N"

// LoadResult reports what a load did.
type LoadResult struct {
	// LoadID correlates log lines of one Load invocation.
	LoadID uuid.UUID

	UpdateID string
	Table    string

	// Rows is the number of rows staged.
	Rows int64

	// Bytes is the size of the staged buffer.
	Bytes int64

	// TableCreated is true if the target table was created during the load.
	TableCreated bool

	Duration time.Duration
}

// QueryJob describes one statement executed as a unit of work.
type QueryJob struct {
	UpdateID string

	// Table is recorded as target_table in the marker row.
	Table string

	SQL string
}

// Validate checks if the QueryJob has all required fields.
func (j *QueryJob) Validate() error {
	var errs []error

	if strings.TrimSpace(j.UpdateID) == "" {
		errs = append(errs, fmt.Errorf("UpdateID is required: %w", ErrInvalidConfig))
	}
	if strings.TrimSpace(j.Table) == "" {
		errs = append(errs, fmt.Errorf("Table is required: %w", ErrInvalidConfig))
	}
	if strings.TrimSpace(j.SQL) == "" {
		errs = append(errs, fmt.Errorf("SQL is required: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}
