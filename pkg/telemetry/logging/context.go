package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for HTTP request IDs.
	RequestIDKey contextKey = "request_id"

	// SweepIDKey is the context key for archive sweep IDs.
	SweepIDKey contextKey = "sweep_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSweepID adds a sweep ID to the context.
func WithSweepID(ctx context.Context, sweepID string) context.Context {
	return context.WithValue(ctx, SweepIDKey, sweepID)
}

// SweepID retrieves the sweep ID from the context.
func SweepID(ctx context.Context) string {
	if id, ok := ctx.Value(SweepIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns logger with the ids found in ctx attached.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := RequestID(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	if id := SweepID(ctx); id != "" {
		logger = logger.With("sweep_id", id)
	}
	return logger
}
