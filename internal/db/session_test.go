package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/vload/pkg/vload"
)

func TestTxGuard(t *testing.T) {
	t.Run("postgres statement failure poisons", func(t *testing.T) {
		g := &txGuard{dialect: postgresDialect{}}
		require.NoError(t, g.ready())

		err := g.observe(&pgconn.PgError{Code: "42P01"})
		assert.ErrorIs(t, err, vload.ErrRelationMissing)
		assert.Equal(t, vload.TxPoisoned, g.State())
		assert.ErrorIs(t, g.ready(), vload.ErrTransactionPoisoned)
	})

	t.Run("vertica statement failure keeps transaction", func(t *testing.T) {
		g := &txGuard{dialect: verticaDialect{}}
		err := g.observe(errors.New(`Error: [42V01] Relation "t" does not exist`))
		assert.ErrorIs(t, err, vload.ErrRelationMissing)
		assert.Equal(t, vload.TxActive, g.State())
		assert.NoError(t, g.ready())
	})

	t.Run("connection failure poisons any dialect", func(t *testing.T) {
		g := &txGuard{dialect: verticaDialect{}}
		err := g.observe(errors.New("Error: [08006] connection lost"))
		assert.ErrorIs(t, err, vload.ErrConnection)
		assert.Equal(t, vload.TxPoisoned, g.State())
	})

	t.Run("nil error", func(t *testing.T) {
		g := &txGuard{dialect: postgresDialect{}}
		assert.NoError(t, g.observe(nil))
		assert.Equal(t, vload.TxActive, g.State())
	})

	t.Run("closed", func(t *testing.T) {
		g := &txGuard{dialect: postgresDialect{}, state: vload.TxClosed}
		assert.ErrorIs(t, g.ready(), vload.ErrSessionClosed)
		g.observe(errors.New("late"))
		assert.Equal(t, vload.TxClosed, g.State(), "closed sessions stay closed")
	})
}

type fakeConnector struct {
	connectFunc func(ctx context.Context) (vload.Session, error)
}

func (f *fakeConnector) Connect(ctx context.Context) (vload.Session, error) {
	return f.connectFunc(ctx)
}

type closeTrackingSession struct {
	vload.Session
	closed   bool
	closeErr error
}

func (s *closeTrackingSession) Close(context.Context) error {
	s.closed = true
	return s.closeErr
}

func TestWithSession(t *testing.T) {
	ctx := context.Background()

	t.Run("closes after success", func(t *testing.T) {
		s := &closeTrackingSession{}
		conn := &fakeConnector{connectFunc: func(context.Context) (vload.Session, error) { return s, nil }}

		err := WithSession(ctx, conn, func(got vload.Session) error {
			assert.Same(t, s, got)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, s.closed)
	})

	t.Run("joins close error with fn error", func(t *testing.T) {
		fnErr := errors.New("fn failed")
		closeErr := errors.New("close failed")
		s := &closeTrackingSession{closeErr: closeErr}
		conn := &fakeConnector{connectFunc: func(context.Context) (vload.Session, error) { return s, nil }}

		err := WithSession(ctx, conn, func(vload.Session) error { return fnErr })
		assert.ErrorIs(t, err, fnErr)
		assert.ErrorIs(t, err, closeErr)
	})

	t.Run("connect failure", func(t *testing.T) {
		conn := &fakeConnector{connectFunc: func(context.Context) (vload.Session, error) {
			return nil, vload.ErrConnection
		}}
		called := false
		err := WithSession(ctx, conn, func(vload.Session) error { called = true; return nil })
		assert.ErrorIs(t, err, vload.ErrConnection)
		assert.False(t, called)
	})
}
