package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	c := New(nil)

	c.ObserveStaged(3, 120)
	c.ObserveStaged(2, 30)
	assert.Equal(t, 5.0, testutil.ToFloat64(c.RowsStagedTotal))
	assert.Equal(t, 150.0, testutil.ToFloat64(c.BytesStagedTotal))

	c.ObserveUnit(KindCopy, nil)
	c.ObserveUnit(KindCopy, errors.New("boom"))
	c.ObserveUnit(KindQuery, nil)
	c.ObserveSkipped(KindCopy)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.UnitsTotal.WithLabelValues(KindCopy, Ok)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.UnitsTotal.WithLabelValues(KindCopy, Fail)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.UnitsTotal.WithLabelValues(KindCopy, Skipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.UnitsTotal.WithLabelValues(KindQuery, Ok)))

	c.ObserveLoad(2*time.Second, true)
	c.ObserveLoad(time.Second, false)
	c.ObserveMarker()
	assert.Equal(t, 3.0, testutil.ToFloat64(c.MarkersTouchedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.TablesCreatedTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(c.LoadDuration))
}

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c := New(reg)
	c.ObserveUnit(KindCopy, nil)

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	assert.Panics(t, func() { New(reg) }, "double registration")
}
