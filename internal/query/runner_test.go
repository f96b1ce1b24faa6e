package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/vload/internal/logging"
	"github.com/vvka-141/vload/internal/marker"
	"github.com/vvka-141/vload/internal/metrics"
	"github.com/vvka-141/vload/internal/testing/fakedb"
	"github.com/vvka-141/vload/pkg/vload"
)

func setup(t *testing.T, dialect vload.DialectName) (*fakedb.DB, *marker.Store, *Runner, *metrics.Collectors) {
	t.Helper()
	d := fakedb.New(dialect)
	store, err := marker.NewStore(d, vload.DefaultMarkerConfig(), logging.NewNullLogger())
	require.NoError(t, err)
	m := metrics.New(nil)
	return d, store, NewRunner(store, logging.NewNullLogger(), m), m
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()
	d, store, runner, m := setup(t, vload.DialectVertica)
	d.CreateTable("metrics", "metric", "value")

	session, _ := d.Connect(ctx)
	defer session.Close(ctx)

	err := runner.Run(ctx, session, &vload.QueryJob{
		UpdateID: "q1",
		Table:    "metrics",
		SQL:      "INSERT INTO metrics (metric, value) VALUES (?, ?)",
	})
	require.NoError(t, err)

	ok, err := store.Target("q1", "metrics").Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MarkersTouchedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnitsTotal.WithLabelValues(metrics.KindQuery, metrics.Ok)))
}

func TestRunner_FailingStatement(t *testing.T) {
	for _, dialect := range []vload.DialectName{vload.DialectVertica, vload.DialectPostgres} {
		t.Run(string(dialect), func(t *testing.T) {
			ctx := context.Background()
			d, store, runner, _ := setup(t, dialect)
			d.CreateTable("metrics", "metric", "value")
			syntaxErr := errors.New("Error: [42601] Syntax error at or near \"DELET\"")
			d.FailOn = func(sql string) error {
				if strings.HasPrefix(sql, "DELETE") {
					return syntaxErr
				}
				return nil
			}

			session, _ := d.Connect(ctx)
			defer session.Close(ctx)

			err := runner.Run(ctx, session, &vload.QueryJob{UpdateID: "q1", Table: "metrics", SQL: "DELETE FROM metrics"})
			assert.Same(t, syntaxErr, err, "driver errors propagate unmodified")
			assert.Equal(t, vload.TxActive, session.State())

			ok, err := store.Target("q1", "metrics").Exists(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			var execCount int
			for _, s := range d.Statements() {
				if strings.HasPrefix(s, "DELETE") {
					execCount++
				}
			}
			assert.Equal(t, 1, execCount, "no retry")
		})
	}
}

func TestRunner_RepeatedUpdateIDCollapses(t *testing.T) {
	ctx := context.Background()
	d, _, runner, _ := setup(t, vload.DialectPostgres)
	d.CreateTable("metrics", "metric", "value")
	session, _ := d.Connect(ctx)
	defer session.Close(ctx)

	job := &vload.QueryJob{UpdateID: "q1", Table: "metrics", SQL: "TRUNCATE TABLE metrics"}
	require.NoError(t, runner.Run(ctx, session, job))
	assert.Error(t, runner.Run(ctx, session, job))
	assert.Len(t, d.Rows("table_updates"), 1)
}

func TestRunner_Validation(t *testing.T) {
	ctx := context.Background()
	d, _, runner, _ := setup(t, vload.DialectVertica)
	session, _ := d.Connect(ctx)
	defer session.Close(ctx)

	err := runner.Run(ctx, session, &vload.QueryJob{UpdateID: "q1"})
	assert.ErrorIs(t, err, vload.ErrInvalidConfig)
	assert.Empty(t, d.Statements())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "SELECT 1", preview("SELECT 1"))
	long := strings.Repeat("x", vload.MaxErrorPreviewLength+10)
	assert.Equal(t, vload.MaxErrorPreviewLength+3, len(preview(long)))
}
