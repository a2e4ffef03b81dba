package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks ingestion pipeline health.
type Metrics struct {
	submissions    *prometheus.CounterVec
	scansReused    prometheus.Counter
	processingTime *prometheus.HistogramVec
	findings       *prometheus.CounterVec
	failures       *prometheus.CounterVec
}

// NewMetrics registers ingestion metrics on the given registerer. Passing
// nil uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wellq",
			Subsystem: "ingest",
			Name:      "submissions_total",
			Help:      "Scan submissions accepted at the boundary.",
		}, []string{"scanner"}),
		scansReused: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wellq",
			Subsystem: "ingest",
			Name:      "scans_reused_total",
			Help:      "Submissions attached to an existing same-day scan.",
		}),
		processingTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wellq",
			Subsystem: "ingest",
			Name:      "processing_seconds",
			Help:      "Time spent parsing and reconciling one scan document.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"scanner"}),
		findings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wellq",
			Subsystem: "ingest",
			Name:      "findings_total",
			Help:      "Finding lifecycle transitions per reconciliation outcome.",
		}, []string{"outcome"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wellq",
			Subsystem: "ingest",
			Name:      "failures_total",
			Help:      "Scan processing failures by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) submissionAccepted(scanner string, reused bool) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(scanner).Inc()
	if reused {
		m.scansReused.Inc()
	}
}

func (m *Metrics) scanProcessed(scanner string, d time.Duration, result ReconcileResult) {
	if m == nil {
		return
	}
	m.processingTime.WithLabelValues(scanner).Observe(d.Seconds())
	m.findings.WithLabelValues("created").Add(float64(result.Created))
	m.findings.WithLabelValues("reobserved").Add(float64(result.Reobserved))
	m.findings.WithLabelValues("reopened").Add(float64(result.Reopened))
	m.findings.WithLabelValues("auto_closed").Add(float64(result.AutoClosed))
}

func (m *Metrics) scanFailed(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}
