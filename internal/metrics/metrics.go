// Package metrics exposes Prometheus collectors for scrape runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "etfflows"

// Metrics groups the pipeline collectors. A nil *Metrics is a no-op.
type Metrics struct {
	Runs           *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	Upserts        *prometheus.CounterVec
	NotifyFailures *prometheus.CounterVec
	LastSuccess    *prometheus.GaugeVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Scrape runs by ETF family and outcome.",
		}, []string{"etf", "outcome"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Wall-clock duration of scrape runs.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"etf"}),
		Upserts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upserts_total",
			Help:      "Day upserts by ETF family and action.",
		}, []string{"etf", "action"}),
		NotifyFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Best-effort notifications that failed.",
		}, []string{"etf"}),
		LastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that ended Done.",
		}, []string{"etf"}),
	}
}

// ObserveRun records the outcome and duration of one run.
func (m *Metrics) ObserveRun(etf, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(etf, outcome).Inc()
	m.RunDuration.WithLabelValues(etf).Observe(elapsed.Seconds())
	if outcome == "done" {
		m.LastSuccess.WithLabelValues(etf).SetToCurrentTime()
	}
}

// CountUpsert records one applied upsert.
func (m *Metrics) CountUpsert(etf, action string) {
	if m == nil {
		return
	}
	m.Upserts.WithLabelValues(etf, action).Inc()
}

// NotifyFailed records one failed notification.
func (m *Metrics) NotifyFailed(etf string) {
	if m == nil {
		return
	}
	m.NotifyFailures.WithLabelValues(etf).Inc()
}
