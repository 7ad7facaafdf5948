// Package metrics provides Prometheus metrics for the archiver.
//
// # Metrics Categories
//
//   - Sweep metrics: runs by outcome, duration, archived and skipped files,
//     move and untag failures
//   - Job metrics: scheduler runs by job type and status
//   - HTTP metrics: API requests by route and status
//
// The Collector implements the recorder interfaces of the archive engine and
// the scheduler, so both report to it without importing Prometheus.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	engine, _ := archive.NewEngine(archive.Dependencies{..., Recorder: collector}, nil)
//	router.Handle("/metrics", collector.Handler())
package metrics
