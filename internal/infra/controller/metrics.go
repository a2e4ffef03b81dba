package controller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects reconciliation metrics for all controllers.
type Metrics struct {
	runs     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  *prometheus.GaugeVec
}

// NewMetrics registers controller metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		runs: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "controller_reconcile_total",
				Help: "Total reconciliation runs per controller.",
			},
			[]string{"controller"},
		),
		errors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "controller_reconcile_errors_total",
				Help: "Failed reconciliation runs per controller.",
			},
			[]string{"controller"},
		),
		duration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "controller_reconcile_duration_seconds",
				Help:    "Reconciliation latency per controller.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"controller"},
		),
		lastRun: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "controller_last_reconcile_timestamp_seconds",
				Help: "Unix time of the last reconciliation per controller.",
			},
			[]string{"controller"},
		),
	}
}

func (m *Metrics) recordReconcile(controller string, d time.Duration, err error) {
	m.runs.WithLabelValues(controller).Inc()
	m.duration.WithLabelValues(controller).Observe(d.Seconds())
	m.lastRun.WithLabelValues(controller).SetToCurrentTime()
	if err != nil {
		m.errors.WithLabelValues(controller).Inc()
	}
}
