package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mdhemmi/files-archive/pkg/archive"
	"github.com/mdhemmi/files-archive/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestCollector(enabled bool) *Collector {
	return NewCollector(&config.MetricsConfig{Enabled: enabled, Namespace: "archiver"}, prometheus.NewRegistry())
}

func TestCollector_SweepMetrics(t *testing.T) {
	c := newTestCollector(true)

	c.RecordSweep(archive.OutcomeCompleted, 2*time.Second)
	c.RecordSweep(archive.OutcomeCompleted, time.Second)
	c.RecordSweep(archive.OutcomeSelfDeregistered, 0)
	c.RecordArchived()
	c.RecordArchived()
	c.RecordSkipped(archive.SkipNotEligible)
	c.RecordArchiveFailure()
	c.RecordUntagFailure()

	tests := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"completed sweeps", testutil.ToFloat64(c.sweep.runs.WithLabelValues(archive.OutcomeCompleted.String())), 2},
		{"deregistered sweeps", testutil.ToFloat64(c.sweep.runs.WithLabelValues(archive.OutcomeSelfDeregistered.String())), 1},
		{"archived", testutil.ToFloat64(c.sweep.archived), 2},
		{"skipped", testutil.ToFloat64(c.sweep.skipped.WithLabelValues(archive.SkipNotEligible)), 1},
		{"failures", testutil.ToFloat64(c.sweep.failures), 1},
		{"untag failures", testutil.ToFloat64(c.sweep.untagFailures), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, tt.got)
		}
	}

	if n := testutil.CollectAndCount(c.sweep.duration); n != 2 {
		t.Errorf("Expected 2 duration series, got %d", n)
	}
}

func TestCollector_JobAndHTTPMetrics(t *testing.T) {
	c := newTestCollector(true)

	c.RecordJobRun("archive", "success", time.Second)
	c.RecordJobRun("archive", "error", time.Second)
	c.RecordHTTPRequest("GET", "/api/v1/rules", 200, 10*time.Millisecond)

	if got := testutil.ToFloat64(c.jobs.runs.WithLabelValues("archive", "success")); got != 1 {
		t.Errorf("Expected 1 successful run, got %v", got)
	}
	if got := testutil.ToFloat64(c.jobs.runs.WithLabelValues("archive", "error")); got != 1 {
		t.Errorf("Expected 1 failed run, got %v", got)
	}
	if got := testutil.ToFloat64(c.http.requests.WithLabelValues("GET", "/api/v1/rules", "200")); got != 1 {
		t.Errorf("Expected 1 request, got %v", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	c := newTestCollector(false)

	c.RecordArchived()
	c.RecordJobRun("archive", "success", time.Second)

	if got := testutil.ToFloat64(c.sweep.archived); got != 0 {
		t.Errorf("Expected disabled collector to record nothing, got %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(true)
	c.RecordArchived()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "archiver_objects_archived_total 1") {
		t.Errorf("Expected archived counter in exposition, got:\n%s", rec.Body.String())
	}
}

func TestNewCollector_DefaultRegistry(t *testing.T) {
	c := NewCollector(nil, nil)
	if c.Registry() == nil {
		t.Fatal("Expected a registry")
	}

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "go_") {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected Go runtime metrics on the default registry")
	}
}
