package services

import (
	"context"
	"fmt"

	"github.com/vvka-141/vload/internal/db"
	"github.com/vvka-141/vload/internal/loader"
	"github.com/vvka-141/vload/internal/marker"
	"github.com/vvka-141/vload/internal/metrics"
	"github.com/vvka-141/vload/pkg/vload"
)

// Outcome reports what a service run did.
type Outcome struct {
	// Skipped is true when the unit's marker already existed and nothing ran.
	Skipped bool

	// Result is set for completed bulk loads.
	Result *vload.LoadResult
}

// CopyService runs a bulk load as a complete unit of work: it opens a
// session, skips the unit if it is already marked complete, and otherwise
// loads and marks it.
//
// Thread-Safety: safe for concurrent Run() calls with different update ids.
type CopyService struct {
	connector vload.Connector
	store     *marker.Store
	loader    *loader.Loader
	logger    vload.Logger
	metrics   *metrics.Collectors
}

// NewCopyService creates a CopyService with all dependencies injected.
// Panics on nil dependencies; runtime failures are returned from Run.
func NewCopyService(
	connector vload.Connector,
	store *marker.Store,
	l *loader.Loader,
	logger vload.Logger,
	collectors *metrics.Collectors,
) *CopyService {
	if connector == nil {
		panic("connector cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if l == nil {
		panic("loader cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if collectors == nil {
		panic("metrics cannot be nil")
	}
	return &CopyService{
		connector: connector,
		store:     store,
		loader:    l,
		logger:    logger,
		metrics:   collectors,
	}
}

// Run executes job unless its update id is already complete.
func (s *CopyService) Run(ctx context.Context, job *vload.LoadJob) (Outcome, error) {
	if job == nil {
		return Outcome{}, fmt.Errorf("load job is required: %w", vload.ErrInvalidConfig)
	}
	if _, err := job.Validate(); err != nil {
		return Outcome{}, err
	}

	var outcome Outcome
	err := db.WithSession(ctx, s.connector, func(session vload.Session) error {
		done, err := s.store.Exists(ctx, session, job.UpdateID)
		if err != nil {
			return err
		}
		if done {
			s.logger.Info("%s already loaded into %s, skipping", job.UpdateID, job.Table)
			s.metrics.ObserveSkipped(metrics.KindCopy)
			outcome.Skipped = true
			return nil
		}

		result, err := s.loader.Load(ctx, session, job)
		if err != nil {
			return err
		}
		outcome.Result = result
		s.logger.Info("Loaded %d rows into %s (%s)", result.Rows, result.Table, result.UpdateID)
		return nil
	})
	return outcome, err
}
