package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/vvka-141/vload/pkg/vload"
)

// txGuard implements the transaction state machine shared by all sessions:
// it fails statements fast on poisoned or closed sessions and classifies
// statement errors, poisoning the session on dialects that abort the
// transaction on error.
type txGuard struct {
	dialect vload.Dialect
	state   vload.TxState
}

func (g *txGuard) State() vload.TxState { return g.state }

func (g *txGuard) Dialect() vload.Dialect { return g.dialect }

// ready returns an error if no statement may be issued.
func (g *txGuard) ready() error {
	switch g.state {
	case vload.TxPoisoned:
		return vload.ErrTransactionPoisoned
	case vload.TxClosed:
		return vload.ErrSessionClosed
	}
	return nil
}

// observe classifies a statement error and updates the state.
func (g *txGuard) observe(err error) error {
	if err == nil {
		return nil
	}
	err = Classify(err)
	if g.state == vload.TxActive && (g.dialect.PoisonsTransaction() || errors.Is(err, vload.ErrConnection)) {
		g.state = vload.TxPoisoned
	}
	return err
}

// errRow is returned by QueryRow when the statement was never sent.
type errRow struct {
	err error
}

func (r errRow) Scan(...any) error { return r.err }

// WithSession opens a session from connector, passes it to fn and closes it
// afterwards. A close failure is joined with fn's error rather than replacing it.
func WithSession(ctx context.Context, connector vload.Connector, fn func(vload.Session) error) (err error) {
	session, err := connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(ctx); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close session: %w", closeErr))
		}
	}()

	return fn(session)
}
