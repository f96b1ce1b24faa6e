package marker

import (
	"context"

	"github.com/vvka-141/vload/internal/db"
	"github.com/vvka-141/vload/pkg/vload"
)

// Target is the completion handle of one unit of work: the pair of update
// id and target table an orchestrator checks before scheduling the unit.
type Target struct {
	store    *Store
	UpdateID string
	Table    string
}

// Exists reports whether the unit completed, on a session of its own.
func (t *Target) Exists(ctx context.Context) (bool, error) {
	var ok bool
	err := db.WithSession(ctx, t.store.connector, func(session vload.Session) error {
		var err error
		ok, err = t.store.Exists(ctx, session, t.UpdateID)
		return err
	})
	return ok, err
}

// Touch marks the unit complete on session.
func (t *Target) Touch(ctx context.Context, session vload.Session) error {
	return t.store.Touch(ctx, session, t.UpdateID, t.Table)
}
