// Package metrics exposes Prometheus counters for a compile run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "terrain"

// Metrics groups the run collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	rows          prometheus.Counter
	columns       prometheus.Counter
	skipped       prometheus.Counter
	batches       prometheus.Counter
	notifications prometheus.Counter
	blocksUsed    prometheus.Counter
	checkpoint    prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Sampled source rows compiled.",
		}),
		columns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_written_total",
			Help:      "Columns written to the world.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_skipped_total",
			Help:      "Columns skipped because a sample had no level.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches flushed and checkpointed.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_notifications_total",
			Help:      "Deduplicated chunk change notifications emitted.",
		}),
		blocksUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surface_levels_total",
			Help:      "Sum of surface levels over written columns.",
		}),
		checkpoint: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkpoint_duration_seconds",
			Help:      "Time spent persisting the world per batch.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	reg.MustRegister(m.rows, m.columns, m.skipped, m.batches, m.notifications, m.blocksUsed, m.checkpoint)
	return m
}

func (m *Metrics) RowDone() {
	if m != nil {
		m.rows.Inc()
	}
}

func (m *Metrics) ColumnWritten(surface int) {
	if m != nil {
		m.columns.Inc()
		if surface > 0 {
			m.blocksUsed.Add(float64(surface))
		}
	}
}

func (m *Metrics) ColumnSkipped() {
	if m != nil {
		m.skipped.Inc()
	}
}

func (m *Metrics) BatchDone(notifications int, checkpoint time.Duration) {
	if m != nil {
		m.batches.Inc()
		m.notifications.Add(float64(notifications))
		m.checkpoint.Observe(checkpoint.Seconds())
	}
}
