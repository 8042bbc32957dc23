package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRun("btc", "done", time.Second)
	m.ObserveRun("btc", "failed", time.Second)
	m.ObserveRun("btc", "done", 2*time.Second)
	m.CountUpsert("btc", "created")
	m.NotifyFailed("btc")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Runs.WithLabelValues("btc", "done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("btc", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Upserts.WithLabelValues("btc", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotifyFailures.WithLabelValues("btc")))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccess.WithLabelValues("btc")), 0.0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("btc", "done", time.Second)
		m.CountUpsert("btc", "updated")
		m.NotifyFailed("btc")
	})
}
