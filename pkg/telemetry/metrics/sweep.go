package metrics

import "github.com/prometheus/client_golang/prometheus"

// SweepMetrics tracks archive engine runs.
type SweepMetrics struct {
	runs          *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	archived      prometheus.Counter
	skipped       *prometheus.CounterVec
	failures      prometheus.Counter
	untagFailures prometheus.Counter
}

// NewSweepMetrics creates and registers the sweep metrics.
func NewSweepMetrics(namespace string, registry prometheus.Registerer) *SweepMetrics {
	m := &SweepMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Archive sweeps by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of archive sweeps.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600, 1800},
		}, []string{"outcome"}),
		archived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_archived_total",
			Help:      "Files moved into an archive folder.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_skipped_total",
			Help:      "Tagged files left in place by reason.",
		}, []string{"reason"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_failures_total",
			Help:      "Files whose move into the archive failed.",
		}),
		untagFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "untag_failures_total",
			Help:      "Archived files whose tag could not be removed.",
		}),
	}

	registry.MustRegister(m.runs, m.duration, m.archived, m.skipped, m.failures, m.untagFailures)
	return m
}
