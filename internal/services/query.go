package services

import (
	"context"
	"fmt"

	"github.com/vvka-141/vload/internal/db"
	"github.com/vvka-141/vload/internal/marker"
	"github.com/vvka-141/vload/internal/metrics"
	"github.com/vvka-141/vload/internal/query"
	"github.com/vvka-141/vload/pkg/vload"
)

// QueryService runs a statement as a complete unit of work, skipping it if
// its update id is already complete.
//
// Thread-Safety: safe for concurrent Run() calls with different update ids.
type QueryService struct {
	connector vload.Connector
	store     *marker.Store
	runner    *query.Runner
	logger    vload.Logger
	metrics   *metrics.Collectors
}

// NewQueryService creates a QueryService. Panics on nil dependencies.
func NewQueryService(
	connector vload.Connector,
	store *marker.Store,
	runner *query.Runner,
	logger vload.Logger,
	collectors *metrics.Collectors,
) *QueryService {
	if connector == nil {
		panic("connector cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if runner == nil {
		panic("runner cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if collectors == nil {
		panic("metrics cannot be nil")
	}
	return &QueryService{
		connector: connector,
		store:     store,
		runner:    runner,
		logger:    logger,
		metrics:   collectors,
	}
}

// Run executes job unless its update id is already complete.
func (s *QueryService) Run(ctx context.Context, job *vload.QueryJob) (Outcome, error) {
	if job == nil {
		return Outcome{}, fmt.Errorf("query job is required: %w", vload.ErrInvalidConfig)
	}
	if err := job.Validate(); err != nil {
		return Outcome{}, err
	}

	var outcome Outcome
	err := db.WithSession(ctx, s.connector, func(session vload.Session) error {
		done, err := s.store.Exists(ctx, session, job.UpdateID)
		if err != nil {
			return err
		}
		if done {
			s.logger.Info("%s already executed, skipping", job.UpdateID)
			s.metrics.ObserveSkipped(metrics.KindQuery)
			outcome.Skipped = true
			return nil
		}
		return s.runner.Run(ctx, session, job)
	})
	return outcome, err
}
