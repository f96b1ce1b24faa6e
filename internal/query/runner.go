// Package query runs a single SQL statement as a unit of work and marks it
// complete in the same transaction.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/vvka-141/vload/internal/marker"
	"github.com/vvka-141/vload/internal/metrics"
	"github.com/vvka-141/vload/pkg/vload"
)

// Runner executes QueryJobs. Safe for concurrent use.
type Runner struct {
	marker  *marker.Store
	logger  vload.Logger
	metrics *metrics.Collectors
}

// NewRunner creates a Runner. Panics if any dependency is nil.
func NewRunner(store *marker.Store, logger vload.Logger, collectors *metrics.Collectors) *Runner {
	if store == nil {
		panic("marker store cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if collectors == nil {
		panic("metrics cannot be nil")
	}
	return &Runner{marker: store, logger: logger, metrics: collectors}
}

// Run executes job.SQL on session and touches the marker. A failing
// statement is not retried; the session is reset so no marker is pending
// and the driver's error is returned as is.
func (r *Runner) Run(ctx context.Context, session vload.Session, job *vload.QueryJob) (err error) {
	defer func() {
		r.metrics.ObserveUnit(metrics.KindQuery, err)
	}()

	if err := job.Validate(); err != nil {
		return err
	}

	r.logger.Info("Executing query for %s", job.UpdateID)
	r.logger.Verbose("SQL: %s", preview(job.SQL))

	if err := session.Exec(ctx, job.SQL); err != nil {
		return r.abort(ctx, session, err)
	}

	if err := r.marker.Touch(ctx, session, job.UpdateID, job.Table); err != nil {
		return r.abort(ctx, session, err)
	}
	r.metrics.ObserveMarker()
	return nil
}

func (r *Runner) abort(ctx context.Context, session vload.Session, cause error) error {
	r.logger.Error("Query failed, rolling back: %v", cause)
	if session.State() == vload.TxClosed {
		return cause
	}
	if err := session.Reset(ctx); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to roll back: %w", err))
	}
	return cause
}

func preview(sql string) string {
	if len(sql) <= vload.MaxErrorPreviewLength {
		return sql
	}
	return sql[:vload.MaxErrorPreviewLength] + "..."
}
