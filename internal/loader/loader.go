// Package loader implements the bulk load of one unit of work: rows are
// staged to a file, copied into the target table, and the unit is marked
// complete in the same transaction.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/vvka-141/vload/internal/marker"
	"github.com/vvka-141/vload/internal/metrics"
	"github.com/vvka-141/vload/internal/retry"
	"github.com/vvka-141/vload/internal/transform"
	"github.com/vvka-141/vload/pkg/vload"
)

// Loader runs bulk loads. Safe for concurrent use by different units of work,
// each on its own session.
type Loader struct {
	marker     *marker.Store
	fs         afero.Fs
	stagingDir string
	logger     vload.Logger
	metrics    *metrics.Collectors
}

// New creates a Loader staging rows on fs inside stagingDir (empty means the
// OS temp dir). Panics if any dependency is nil.
func New(store *marker.Store, fs afero.Fs, stagingDir string, logger vload.Logger, collectors *metrics.Collectors) *Loader {
	if store == nil {
		panic("marker store cannot be nil")
	}
	if fs == nil {
		panic("fs cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if collectors == nil {
		panic("metrics cannot be nil")
	}
	return &Loader{
		marker:     store,
		fs:         fs,
		stagingDir: stagingDir,
		logger:     logger,
		metrics:    collectors,
	}
}

// Load copies job.Rows into job.Table and marks job.UpdateID complete, all in
// session's transaction. If the table does not exist it is created once and
// the copy redone. Any other failure resets the session and writes no marker.
func (l *Loader) Load(ctx context.Context, session vload.Session, job *vload.LoadJob) (_ *vload.LoadResult, err error) {
	start := time.Now()
	defer func() {
		l.metrics.ObserveUnit(metrics.KindCopy, err)
	}()

	columns, err := job.Validate()
	if err != nil {
		return nil, err
	}

	result := &vload.LoadResult{
		LoadID:   uuid.New(),
		UpdateID: job.UpdateID,
		Table:    job.Table,
	}

	file, err := afero.TempFile(l.fs, l.stagingDir, "vload-*.stage")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	defer func() {
		file.Close()
		if rmErr := l.fs.Remove(file.Name()); rmErr != nil {
			l.logger.Verbose("failed to remove staging file %s: %v", file.Name(), rmErr)
		}
	}()

	result.Rows, result.Bytes, err = l.stage(ctx, file, job, len(columns), result.LoadID)
	if err != nil {
		return nil, err
	}
	l.metrics.ObserveStaged(result.Rows, result.Bytes)
	l.logger.Info("Done writing %d rows (%s), importing into %s", result.Rows, humanize.Bytes(uint64(result.Bytes)), job.Table)

	stmt := session.Dialect().CopyStatement(job.Table, vload.ColumnNames(columns), job.EffectiveSeparator())
	creator := job.CreateTable
	if creator == nil {
		creator = DefaultTableCreator
	}

	executor := retry.NewExecutor(retry.RelationMissing(), 1).
		WithRecover(func(ctx context.Context, _ int, cause error) error {
			l.logger.Info("Creating table %s", job.Table)
			l.logger.Verbose("[%s] first attempt failed: %v", result.LoadID, cause)
			if err := session.Reset(ctx); err != nil {
				return fmt.Errorf("failed to reset session: %w", err)
			}
			if err := creator.CreateTable(ctx, session, job.Table, columns); err != nil {
				return fmt.Errorf("failed to create table %s: %w", job.Table, err)
			}
			result.TableCreated = true
			return nil
		})

	err = executor.Execute(ctx, func(ctx context.Context) error {
		return l.attempt(ctx, session, job, stmt, file)
	})
	if err != nil {
		return nil, l.abort(ctx, session, err)
	}

	if err := l.marker.Touch(ctx, session, job.UpdateID, job.Table); err != nil {
		return nil, l.abort(ctx, session, err)
	}

	result.Duration = time.Since(start)
	l.metrics.ObserveLoad(result.Duration, result.TableCreated)
	l.logger.Verbose("[%s] loaded %s: %d rows in %s", result.LoadID, job.Table, result.Rows, result.Duration)
	return result, nil
}

// stage writes every row of job to w and returns the row and byte counts.
func (l *Loader) stage(ctx context.Context, w io.Writer, job *vload.LoadJob, width int, loadID uuid.UUID) (int64, int64, error) {
	mapper := job.Mapper
	if mapper == nil {
		mapper = transform.NewNullMapper(job.NullValues...)
	}
	enc := transform.NewRowEncoder(w, job.EffectiveSeparator(), width, mapper)

	var rows, bytes int64
	for row, err := range job.Rows.Rows(ctx) {
		if err != nil {
			return rows, bytes, fmt.Errorf("failed to read row %d: %w", rows+1, err)
		}
		n, err := enc.Encode(row)
		if err != nil {
			return rows, bytes, fmt.Errorf("row %d: %w", rows+1, err)
		}
		rows++
		bytes += int64(n)
		if rows%vload.ProgressInterval == 0 {
			l.logger.Info("Wrote %d lines", rows)
		}
	}
	l.logger.Verbose("[%s] staged %d rows", loadID, rows)
	return rows, bytes, nil
}

// attempt runs init hook, COPY and post hook once from the start of the staging file.
func (l *Loader) attempt(ctx context.Context, session vload.Session, job *vload.LoadJob, stmt string, file afero.File) error {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind staging file: %w", err)
	}

	if job.InitCopy != nil {
		if err := job.InitCopy.Run(ctx, session); err != nil {
			return fmt.Errorf("init copy hook failed: %w", err)
		}
	}

	n, err := session.CopyFrom(ctx, stmt, file)
	if err != nil {
		return fmt.Errorf("copy into %s failed: %w", job.Table, err)
	}
	if n >= 0 {
		l.logger.Verbose("Server loaded %d rows into %s", n, job.Table)
	}

	if job.PostCopy != nil {
		if err := job.PostCopy.Run(ctx, session); err != nil {
			return fmt.Errorf("post copy hook failed: %w", err)
		}
	}
	return nil
}

// abort rolls back the unit's transaction so neither data nor marker persist.
func (l *Loader) abort(ctx context.Context, session vload.Session, cause error) error {
	l.logger.Error("Load failed, rolling back: %v", cause)
	if session.State() == vload.TxClosed {
		return cause
	}
	if err := session.Reset(ctx); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to roll back: %w", err))
	}
	return cause
}
