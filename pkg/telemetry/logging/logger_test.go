package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{"json", func(t *testing.T, out string) {
			var rec map[string]any
			if err := json.Unmarshal([]byte(out), &rec); err != nil {
				t.Fatalf("Expected JSON output, got %q: %v", out, err)
			}
			if rec["msg"] != "hello" {
				t.Errorf("Expected msg hello, got %v", rec["msg"])
			}
		}},
		{"text", func(t *testing.T, out string) {
			if !strings.Contains(out, "msg=hello") {
				t.Errorf("Expected text output, got %q", out)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(Config{Level: "info", Format: tt.format, Writer: &buf})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			logger.Slog().Info("hello")
			tt.check(t, strings.TrimSpace(buf.String()))
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("Expected error for unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestSetLevel_AffectsDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	derived := logger.Slog().With("component", "archive")

	derived.Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatal("Expected debug record to be filtered at info")
	}

	if err := logger.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	if logger.Level() != slog.LevelDebug {
		t.Errorf("Expected debug level, got %v", logger.Level())
	}

	derived.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("Expected debug record after SetLevel")
	}

	if err := logger.SetLevel("verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithSweepID(WithRequestID(context.Background(), "req-1"), "sweep-1")
	if RequestID(ctx) != "req-1" || SweepID(ctx) != "sweep-1" {
		t.Fatalf("Expected ids in context, got %q %q", RequestID(ctx), SweepID(ctx))
	}

	FromContext(ctx, base).Info("x")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if rec["request_id"] != "req-1" || rec["sweep_id"] != "sweep-1" {
		t.Errorf("Expected ids on record, got %v", rec)
	}

	if RequestID(context.Background()) != "" {
		t.Error("Expected empty request id")
	}
}
