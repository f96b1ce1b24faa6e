// Package marker records completed units of work in a marker table so that
// re-running a unit with the same update id is a no-op.
package marker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vvka-141/vload/internal/db"
	"github.com/vvka-141/vload/pkg/vload"
)

// Store reads and writes marker rows. Safe for concurrent use; every
// operation runs on the session it is given, except CreateIfAbsent which
// opens its own.
type Store struct {
	connector vload.Connector
	config    vload.MarkerConfig
	logger    vload.Logger
	now       func() time.Time
}

// NewStore creates a marker store. Panics if connector or logger is nil.
// Returns an error if the marker configuration is invalid.
func NewStore(connector vload.Connector, config vload.MarkerConfig, logger vload.Logger) (*Store, error) {
	if connector == nil {
		panic("connector cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		connector: connector,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Table returns the marker table name.
func (s *Store) Table() string {
	return s.config.Table
}

// Exists reports whether a marker row for updateID is present. A missing
// marker table means the unit has never completed and is not an error.
func (s *Store) Exists(ctx context.Context, session vload.Session, updateID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE update_id = %s LIMIT 1",
		s.config.Table, session.Dialect().Placeholder(1))

	var one int
	err := session.QueryRow(ctx, query, updateID).Scan(&one)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, vload.ErrNoRows):
		return false, nil
	case errors.Is(err, vload.ErrRelationMissing):
		if session.State() == vload.TxPoisoned {
			if resetErr := session.Reset(ctx); resetErr != nil {
				return false, fmt.Errorf("failed to reset session after marker lookup: %w", resetErr)
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("failed to check marker for %q: %w", updateID, err)
	}
}

// CreateIfAbsent creates the marker table on a separate session. DDL may
// commit implicitly, so it must never run on a session holding loaded data.
func (s *Store) CreateIfAbsent(ctx context.Context) error {
	return db.WithSession(ctx, s.connector, func(session vload.Session) error {
		ddl := session.Dialect().MarkerTableDDL(s.config.Table, s.config.UseDBTimestamps)
		if err := session.Exec(ctx, ddl); err != nil {
			if errors.Is(err, vload.ErrDuplicateObject) {
				return nil
			}
			return fmt.Errorf("failed to create marker table %s: %w", s.config.Table, err)
		}
		if err := session.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit marker table %s: %w", s.config.Table, err)
		}
		s.logger.Verbose("Created marker table %s", s.config.Table)
		return nil
	})
}

// Touch marks updateID complete. The marker row is inserted on session and
// committed together with whatever the session's transaction already holds.
func (s *Store) Touch(ctx context.Context, session vload.Session, updateID, targetTable string) error {
	if err := s.CreateIfAbsent(ctx); err != nil {
		return err
	}

	d := session.Dialect()
	var err error
	if s.config.UseDBTimestamps {
		err = session.Exec(ctx,
			fmt.Sprintf("INSERT INTO %s (update_id, target_table) VALUES (%s, %s)",
				s.config.Table, d.Placeholder(1), d.Placeholder(2)),
			updateID, targetTable)
	} else {
		err = session.Exec(ctx,
			fmt.Sprintf("INSERT INTO %s (update_id, target_table, inserted) VALUES (%s, %s, %s)",
				s.config.Table, d.Placeholder(1), d.Placeholder(2), d.Placeholder(3)),
			updateID, targetTable, s.now())
	}
	if err != nil {
		return fmt.Errorf("failed to insert marker for %q: %w", updateID, err)
	}

	if err := session.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit marker for %q: %w", updateID, err)
	}

	ok, err := s.Exists(ctx, session, updateID)
	if err != nil {
		return fmt.Errorf("%w: marker for %q could not be read back: %w", vload.ErrConsistency, updateID, err)
	}
	if !ok {
		return fmt.Errorf("%w: marker for %q not found after commit", vload.ErrConsistency, updateID)
	}

	s.logger.Verbose("Marked %s complete (target %s)", updateID, targetTable)
	return nil
}

// Target returns a handle bound to one unit of work.
func (s *Store) Target(updateID, table string) *Target {
	return &Target{store: s, UpdateID: updateID, Table: table}
}
