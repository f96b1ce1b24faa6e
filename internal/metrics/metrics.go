// Package metrics holds the Prometheus collectors for bulk loads and marker writes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Values of the result label.
const (
	Fail    = "fail"
	Ok      = "ok"
	Skipped = "skipped"
)

// Kinds of unit of work, the kind label.
const (
	KindCopy  = "copy"
	KindQuery = "query"
)

// Collectors for vload loads. Safe for concurrent use.
type Collectors struct {
	RowsStagedTotal     prometheus.Counter
	BytesStagedTotal    prometheus.Counter
	UnitsTotal          *prometheus.CounterVec
	TablesCreatedTotal  prometheus.Counter
	MarkersTouchedTotal prometheus.Counter
	LoadDuration        prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests and library callers without a
// registry want.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		RowsStagedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vload_rows_staged_total",
			Help: "Cumulative number of rows written to staging files.",
		}),
		BytesStagedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vload_bytes_staged_total",
			Help: "Cumulative number of bytes written to staging files.",
		}),
		UnitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vload_units_total",
			Help: "Cumulative number of units of work by kind and result.",
		}, []string{"kind", "result"}),
		TablesCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vload_tables_created_total",
			Help: "Cumulative number of target tables created by the loader.",
		}),
		MarkersTouchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vload_markers_touched_total",
			Help: "Cumulative number of marker rows written.",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vload_load_duration_seconds",
			Help:    "Time taken by a bulk load from first staged row to marker commit.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}),
	}
	if reg != nil {
		reg.MustRegister(
			c.RowsStagedTotal,
			c.BytesStagedTotal,
			c.UnitsTotal,
			c.TablesCreatedTotal,
			c.MarkersTouchedTotal,
			c.LoadDuration,
		)
	}
	return c
}

// ObserveStaged adds one staged batch.
func (c *Collectors) ObserveStaged(rows, bytes int64) {
	c.RowsStagedTotal.Add(float64(rows))
	c.BytesStagedTotal.Add(float64(bytes))
}

// ObserveUnit records the outcome of one unit of work.
func (c *Collectors) ObserveUnit(kind string, err error) {
	result := Ok
	if err != nil {
		result = Fail
	}
	c.UnitsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveSkipped records a unit skipped because its marker already existed.
func (c *Collectors) ObserveSkipped(kind string) {
	c.UnitsTotal.WithLabelValues(kind, Skipped).Inc()
}

// ObserveLoad records a completed load.
func (c *Collectors) ObserveLoad(d time.Duration, tableCreated bool) {
	c.LoadDuration.Observe(d.Seconds())
	c.MarkersTouchedTotal.Inc()
	if tableCreated {
		c.TablesCreatedTotal.Inc()
	}
}

// ObserveMarker records a marker row written outside a bulk load.
func (c *Collectors) ObserveMarker() {
	c.MarkersTouchedTotal.Inc()
}
