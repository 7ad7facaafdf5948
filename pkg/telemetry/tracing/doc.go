// Package tracing sets up OpenTelemetry for the archiver.
//
// New installs a global tracer provider exporting over OTLP gRPC and the
// W3C trace context propagator. Instrumented packages obtain their tracer
// from the global provider, so with tracing disabled every span is a noop.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
// Sweeps open an "archive.sweep" span with one "archive.move" child per
// archived file; API requests continue traces from incoming traceparent
// headers.
package tracing
