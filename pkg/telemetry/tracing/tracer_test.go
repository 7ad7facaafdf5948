package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/mdhemmi/files-archive/pkg/config"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tracer.Enabled() {
		t.Error("Expected disabled tracer")
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	span.End()
	if TraceID(ctx) != "" {
		t.Error("Expected no trace id from noop tracer")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil, "test"); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestTracer_ExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	cfg := &config.TracingConfig{Enabled: true, SampleRatio: 1, ServiceName: "archiver"}

	tracer, err := newWithExporter(cfg, "test", exporter)
	if err != nil {
		t.Fatalf("newWithExporter failed: %v", err)
	}

	ctx, span := tracer.Start(context.Background(), "archive.sweep")
	if TraceID(ctx) == "" {
		t.Error("Expected a trace id on a sampled span")
	}
	SetError(span, errors.New("boom"))
	span.End()

	// Shutdown resets the in-memory exporter, so flush and read first.
	if err := tracer.provider.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}
	spans := exporter.GetSpans()
	defer tracer.Shutdown(context.Background())

	if len(spans) != 1 {
		t.Fatalf("Expected 1 exported span, got %d", len(spans))
	}
	if spans[0].Name != "archive.sweep" {
		t.Errorf("Expected span archive.sweep, got %q", spans[0].Name)
	}
	if len(spans[0].Events) == 0 {
		t.Error("Expected recorded error event")
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		ratio    float64
		expected string
	}{
		{1, "ParentBased{root:AlwaysOnSampler"},
		{0, "ParentBased{root:AlwaysOffSampler"},
		{0.5, "ParentBased{root:TraceIDRatioBased{0.5}"},
	}

	for _, tt := range tests {
		var s sdktrace.Sampler = newSampler(tt.ratio)
		if got := s.Description(); len(got) < len(tt.expected) || got[:len(tt.expected)] != tt.expected {
			t.Errorf("ratio %v: expected description starting %q, got %q", tt.ratio, tt.expected, got)
		}
	}
}
