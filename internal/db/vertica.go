package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	vertigo "github.com/vertica/vertica-sql-go"
	"github.com/vvka-141/vload/pkg/vload"
)

const verticaDriverName = "vertica"

// VerticaConnector opens sessions through the vertica-sql-go database/sql driver.
// Safe for concurrent use.
type VerticaConnector struct {
	config *vload.ConnectionConfig
}

// NewVerticaConnector creates a VerticaConnector for the given configuration.
func NewVerticaConnector(config *vload.ConnectionConfig) *VerticaConnector {
	return &VerticaConnector{config: config}
}

// Connect opens a dedicated connection and begins a transaction on it.
func (c *VerticaConnector) Connect(ctx context.Context) (vload.Session, error) {
	connectCtx, cancel := withConnectTimeout(ctx, c.config)
	defer cancel()

	pool, err := sql.Open(verticaDriverName, BuildConnectionString(c.config))
	if err != nil {
		return nil, wrapConnectionError(err, c.config)
	}
	// One session is one server connection; the pool never grows past it.
	pool.SetMaxOpenConns(1)

	conn, err := pool.Conn(connectCtx)
	if err == nil {
		err = conn.PingContext(connectCtx)
		if err != nil {
			conn.Close()
		}
	}
	if err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, c.config)
	}

	s := &sqlSession{
		txGuard: txGuard{dialect: verticaDialect{}},
		pool:    pool,
		conn:    conn,
	}
	if err := s.begin(ctx); err != nil {
		s.Close(ctx)
		return nil, wrapConnectionError(err, c.config)
	}
	return s, nil
}

// sqlSession is a vload.Session over a database/sql connection.
type sqlSession struct {
	txGuard
	pool *sql.DB
	conn *sql.Conn
	tx   *sql.Tx
}

func (s *sqlSession) begin(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		s.tx = nil
		s.state = vload.TxPoisoned
		return Classify(err)
	}
	s.tx = tx
	s.state = vload.TxActive
	return nil
}

func (s *sqlSession) Exec(ctx context.Context, query string, args ...any) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.tx.ExecContext(ctx, query, args...)
	return s.observe(err)
}

func (s *sqlSession) QueryRow(ctx context.Context, query string, args ...any) vload.Row {
	if err := s.ready(); err != nil {
		return errRow{err: err}
	}
	return &sqlRow{row: s.tx.QueryRowContext(ctx, query, args...), session: s}
}

// CopyFrom hands r to the driver through a stdin data context, which the
// driver streams when the server requests COPY input.
func (s *sqlSession) CopyFrom(ctx context.Context, query string, r io.Reader) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	res, err := s.tx.ExecContext(vertigo.NewStdinDataContext(ctx, r), query)
	if err != nil {
		return 0, s.observe(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Row counts are informational; the copy itself succeeded.
		return -1, nil
	}
	return n, nil
}

func (s *sqlSession) Commit(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.tx.Commit(); err != nil {
		s.tx = nil
		return errors.Join(s.observe(err), s.begin(ctx))
	}
	return s.begin(ctx)
}

func (s *sqlSession) Reset(ctx context.Context) error {
	if s.state == vload.TxClosed {
		return vload.ErrSessionClosed
	}
	if s.tx != nil {
		if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			return fmt.Errorf("failed to roll back transaction: %w", Classify(err))
		}
		s.tx = nil
	}
	return s.begin(ctx)
}

func (s *sqlSession) Close(ctx context.Context) error {
	if s.state == vload.TxClosed {
		return nil
	}
	s.state = vload.TxClosed

	var errs []error
	if s.tx != nil {
		if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
		s.tx = nil
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type sqlRow struct {
	row     *sql.Row
	session *sqlSession
}

func (r *sqlRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return vload.ErrNoRows
	}
	return r.session.observe(err)
}

// Verify interface compliance at compile time
var (
	_ vload.Connector = (*VerticaConnector)(nil)
	_ vload.Session   = (*sqlSession)(nil)
)
