// Package telemetry groups the archiver's observability packages.
//
//   - logging: slog setup with a runtime adjustable level and context fields
//   - metrics: Prometheus collectors for sweeps, jobs and the HTTP API
//   - tracing: OpenTelemetry tracer provider with an OTLP gRPC exporter
//   - health: liveness and readiness checks
package telemetry
