package metrics

import (
	"strconv"
	"time"

	"github.com/mdhemmi/files-archive/pkg/archive"
	"github.com/mdhemmi/files-archive/pkg/config"
	"github.com/mdhemmi/files-archive/pkg/scheduler"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns the archiver's Prometheus registry and metrics.
// A disabled collector accepts every call and records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	sweep *SweepMetrics
	jobs  *JobMetrics
	http  *HTTPMetrics
}

// NewCollector creates a metrics collector. A nil registry gets a fresh one
// with the Go runtime and process collectors registered.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		sweep:    NewSweepMetrics(cfg.Namespace, registry),
		jobs:     NewJobMetrics(cfg.Namespace, registry),
		http:     NewHTTPMetrics(cfg.Namespace, registry),
	}
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordSweep records a finished engine run.
func (c *Collector) RecordSweep(outcome archive.SweepOutcome, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.sweep.runs.WithLabelValues(outcome.String()).Inc()
	c.sweep.duration.WithLabelValues(outcome.String()).Observe(duration.Seconds())
}

// RecordArchived counts a file moved into an archive folder.
func (c *Collector) RecordArchived() {
	if !c.config.Enabled {
		return
	}
	c.sweep.archived.Inc()
}

// RecordSkipped counts a tagged file left in place.
func (c *Collector) RecordSkipped(reason string) {
	if !c.config.Enabled {
		return
	}
	c.sweep.skipped.WithLabelValues(reason).Inc()
}

// RecordArchiveFailure counts a failed move.
func (c *Collector) RecordArchiveFailure() {
	if !c.config.Enabled {
		return
	}
	c.sweep.failures.Inc()
}

// RecordUntagFailure counts an archived file whose tag could not be removed.
func (c *Collector) RecordUntagFailure() {
	if !c.config.Enabled {
		return
	}
	c.sweep.untagFailures.Inc()
}

// RecordJobRun records one scheduler run of a registered job.
func (c *Collector) RecordJobRun(jobType, status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.jobs.runs.WithLabelValues(jobType, status).Inc()
	c.jobs.duration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// RecordHTTPRequest records one API request. route is the router pattern,
// not the raw path, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.http.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.http.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

var (
	_ archive.Recorder   = (*Collector)(nil)
	_ scheduler.Recorder = (*Collector)(nil)
)
