package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RowDone()
	m.RowDone()
	m.ColumnWritten(11)
	m.ColumnWritten(1)
	m.ColumnSkipped()
	m.BatchDone(3, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rows))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.columns))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.blocksUsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.notifications))

	n, err := testutil.GatherAndCount(reg, "terrain_checkpoint_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RowDone()
		m.ColumnWritten(5)
		m.ColumnSkipped()
		m.BatchDone(1, time.Second)
	})
}
