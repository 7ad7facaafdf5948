package metrics

import "github.com/prometheus/client_golang/prometheus"

// JobMetrics tracks scheduler job runs.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewJobMetrics creates and registers the job metrics.
func NewJobMetrics(namespace string, registry prometheus.Registerer) *JobMetrics {
	m := &JobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_run_total",
			Help:      "Scheduler job runs by job type and status.",
		}, []string{"job_type", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduler job runs.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600, 1800},
		}, []string{"job_type"}),
	}

	registry.MustRegister(m.runs, m.duration)
	return m
}
