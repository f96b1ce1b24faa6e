package db

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/vload/pkg/vload"
)

// PostgresConnector opens sessions with pgx. It serves PostgreSQL targets and
// PostgreSQL-backed test environments of the same load protocol.
// Safe for concurrent use.
type PostgresConnector struct {
	config *vload.ConnectionConfig
}

// NewPostgresConnector creates a PostgresConnector for the given configuration.
func NewPostgresConnector(config *vload.ConnectionConfig) *PostgresConnector {
	return &PostgresConnector{config: config}
}

// Connect opens a connection and begins a transaction on it.
func (c *PostgresConnector) Connect(ctx context.Context) (vload.Session, error) {
	connectCtx, cancel := withConnectTimeout(ctx, c.config)
	defer cancel()

	connConfig, err := pgx.ParseConfig(BuildConnectionString(c.config))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %v: %w", err, vload.ErrInvalidConfig)
	}

	conn, err := pgx.ConnectConfig(connectCtx, connConfig)
	if err != nil {
		return nil, wrapConnectionError(err, c.config)
	}

	s := &pgxSession{
		txGuard: txGuard{dialect: postgresDialect{}},
		conn:    conn,
	}
	if err := s.begin(ctx); err != nil {
		s.Close(ctx)
		return nil, wrapConnectionError(err, c.config)
	}
	return s, nil
}

// pgxSession is a vload.Session over a single pgx connection.
type pgxSession struct {
	txGuard
	conn *pgx.Conn
	tx   pgx.Tx
}

func (s *pgxSession) begin(ctx context.Context) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		s.tx = nil
		s.state = vload.TxPoisoned
		return Classify(err)
	}
	s.tx = tx
	s.state = vload.TxActive
	return nil
}

func (s *pgxSession) Exec(ctx context.Context, sql string, args ...any) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.tx.Exec(ctx, sql, args...)
	return s.observe(err)
}

func (s *pgxSession) QueryRow(ctx context.Context, sql string, args ...any) vload.Row {
	if err := s.ready(); err != nil {
		return errRow{err: err}
	}
	return &pgxRow{row: s.tx.QueryRow(ctx, sql, args...), session: s}
}

// CopyFrom runs the COPY on the transaction's connection, so the copied rows
// belong to the open transaction.
func (s *pgxSession) CopyFrom(ctx context.Context, sql string, r io.Reader) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	tag, err := s.tx.Conn().PgConn().CopyFrom(ctx, r, sql)
	if err != nil {
		return 0, s.observe(err)
	}
	return tag.RowsAffected(), nil
}

func (s *pgxSession) Commit(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.tx.Commit(ctx); err != nil {
		s.tx = nil
		return errors.Join(s.observe(err), s.begin(ctx))
	}
	return s.begin(ctx)
}

func (s *pgxSession) Reset(ctx context.Context) error {
	if s.state == vload.TxClosed {
		return vload.ErrSessionClosed
	}
	if s.tx != nil {
		if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return fmt.Errorf("failed to roll back transaction: %w", Classify(err))
		}
		s.tx = nil
	}
	return s.begin(ctx)
}

func (s *pgxSession) Close(ctx context.Context) error {
	if s.state == vload.TxClosed {
		return nil
	}
	s.state = vload.TxClosed

	var errs []error
	if s.tx != nil {
		if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			errs = append(errs, err)
		}
		s.tx = nil
	}
	if err := s.conn.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type pgxRow struct {
	row     pgx.Row
	session *pgxSession
}

func (r *pgxRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return vload.ErrNoRows
	}
	return r.session.observe(err)
}

// Verify interface compliance at compile time
var (
	_ vload.Connector = (*PostgresConnector)(nil)
	_ vload.Session   = (*pgxSession)(nil)
)
