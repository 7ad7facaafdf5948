package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]CheckFunc
		expected string
	}{
		{"no checks", nil, StatusReady},
		{"all healthy", map[string]CheckFunc{
			"store": func(context.Context) error { return nil },
			"rules": func(context.Context) error { return nil },
		}, StatusReady},
		{"one failing", map[string]CheckFunc{
			"store": func(context.Context) error { return nil },
			"rules": func(context.Context) error { return errors.New("connection refused") },
		}, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(0)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}

			status := c.CheckReadiness(context.Background())
			if status.Status != tt.expected {
				t.Errorf("Expected status %q, got %q", tt.expected, status.Status)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("Expected %d results, got %d", len(tt.checks), len(status.Checks))
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := c.CheckReadiness(context.Background())
	if status.Checks["slow"].Status != StatusUnhealthy {
		t.Errorf("Expected timed out check to be unhealthy, got %+v", status.Checks["slow"])
	}
}

func TestChecks_Sorted(t *testing.T) {
	c := New(0)
	c.RegisterCheck("store", nil)
	c.RegisterCheck("rules", nil)

	names := c.Checks()
	if len(names) != 2 || names[0] != "rules" || names[1] != "store" {
		t.Errorf("Expected [rules store], got %v", names)
	}
}

func TestHandlers(t *testing.T) {
	c := New(0)
	c.RegisterCheck("store", func(context.Context) error { return errors.New("locked") })

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		method   string
		expected int
	}{
		{"liveness", c.LivenessHandler(), http.MethodGet, http.StatusOK},
		{"readiness degraded", c.ReadinessHandler(), http.MethodGet, http.StatusServiceUnavailable},
		{"version", VersionHandler("1.0.0", "abc", "now"), http.MethodGet, http.StatusOK},
		{"head", c.LivenessHandler(), http.MethodHead, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(tt.method, "/", nil))

			if rec.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rec.Code)
			}
			if tt.method == http.MethodHead {
				if rec.Body.Len() != 0 {
					t.Error("Expected empty body for HEAD")
				}
				return
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Errorf("Expected JSON body: %v", err)
			}
		})
	}
}
