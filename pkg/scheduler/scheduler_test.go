package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mdhemmi/files-archive/pkg/store"
)

func newTestList(t *testing.T) *store.Store {
	t.Helper()
	config := store.DefaultConfig()
	config.Path = filepath.Join(t.TempDir(), "jobs.db")
	s, err := store.Open(config)
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type testJob struct {
	mu            sync.Mutex
	args          []Argument
	interval      time.Duration
	timeSensitive bool
	err           error
	onRun         func(arg Argument)
}

func (j *testJob) Run(_ context.Context, arg Argument) error {
	j.mu.Lock()
	j.args = append(j.args, arg)
	j.mu.Unlock()
	if j.onRun != nil {
		j.onRun(arg)
	}
	return j.err
}

func (j *testJob) Interval() time.Duration { return j.interval }
func (j *testJob) TimeSensitive() bool     { return j.timeSensitive }

func (j *testJob) runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.args)
}

type testRecorder struct {
	statuses []string
}

func (r *testRecorder) RecordJobRun(_ string, status string, _ time.Duration) {
	r.statuses = append(r.statuses, status)
}

func TestScheduler_RegisterIdempotent(t *testing.T) {
	list := newTestList(t)
	s := New(list, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Register(ctx, "archive", map[string]any{"tag": int64(4)}); err != nil {
			t.Fatalf("Register() failed: %v", err)
		}
	}

	jobs, err := list.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs() failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected a single registration, got %d", len(jobs))
	}
	if jobs[0].Argument != `{"tag":4}` {
		t.Errorf("Argument = %s, want {\"tag\":4}", jobs[0].Argument)
	}

	has, err := s.Has(ctx, "archive", map[string]any{"tag": 4})
	if err != nil || !has {
		t.Errorf("Has() = %v, %v; want true", has, err)
	}

	if err := s.Deregister(ctx, "archive", map[string]any{"tag": json.Number("4")}); err != nil {
		t.Fatalf("Deregister() failed: %v", err)
	}
	has, _ = s.Has(ctx, "archive", map[string]any{"tag": 4})
	if has {
		t.Error("Expected registration removed")
	}
}

func TestScheduler_RunDue(t *testing.T) {
	list := newTestList(t)
	s := New(list, nil)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	rec := &testRecorder{}
	s.SetRecorder(rec)

	job := &testJob{interval: 24 * time.Hour}
	s.RegisterType("archive", job)
	if err := s.Register(ctx, "archive", map[string]any{"tag": 7}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := s.Register(ctx, "unknown", map[string]any{"x": 1}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	ran, err := s.RunDue(ctx)
	if err != nil {
		t.Fatalf("RunDue() failed: %v", err)
	}
	if ran != 1 || job.runs() != 1 {
		t.Fatalf("Expected one run, got ran=%d runs=%d", ran, job.runs())
	}
	if got := job.args[0]["tag"]; got != json.Number("7") {
		t.Errorf("Argument tag = %#v, want json.Number(\"7\")", got)
	}

	// Not due again before the interval elapsed.
	now = now.Add(23 * time.Hour)
	if ran, _ := s.RunDue(ctx); ran != 0 {
		t.Errorf("Expected no run before interval, got %d", ran)
	}

	now = now.Add(time.Hour)
	if ran, _ := s.RunDue(ctx); ran != 1 {
		t.Errorf("Expected run after interval, got %d", ran)
	}

	if len(rec.statuses) != 2 || rec.statuses[0] != "success" {
		t.Errorf("Unexpected recorded statuses: %v", rec.statuses)
	}
}

func TestScheduler_FailingJobIsReleased(t *testing.T) {
	list := newTestList(t)
	s := New(list, nil)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	rec := &testRecorder{}
	s.SetRecorder(rec)

	job := &testJob{interval: time.Hour, err: errors.New("boom")}
	s.RegisterType("archive", job)
	if err := s.Register(ctx, "archive", map[string]any{"tag": 1}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if _, err := s.RunDue(ctx); err != nil {
		t.Fatalf("RunDue() failed: %v", err)
	}
	jobs, _ := list.ListJobs(ctx)
	if !jobs[0].ReservedAt.IsZero() {
		t.Error("Expected reservation released after failure")
	}
	if !jobs[0].LastRun.Equal(now) {
		t.Errorf("LastRun = %v, want %v", jobs[0].LastRun, now)
	}
	if len(rec.statuses) != 1 || rec.statuses[0] != "error" {
		t.Errorf("Unexpected recorded statuses: %v", rec.statuses)
	}
}

func TestScheduler_PanickingJob(t *testing.T) {
	list := newTestList(t)
	s := New(list, nil)
	ctx := context.Background()

	job := &testJob{interval: time.Hour, onRun: func(Argument) { panic("bad job") }}
	s.RegisterType("archive", job)
	if err := s.Register(ctx, "archive", map[string]any{"tag": 1}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	ran, err := s.RunDue(ctx)
	if err != nil {
		t.Fatalf("RunDue() failed: %v", err)
	}
	if ran != 1 {
		t.Errorf("Expected panicking job counted as run, got %d", ran)
	}
}

func TestScheduler_SelfDeregisteringJob(t *testing.T) {
	list := newTestList(t)
	s := New(list, nil)
	ctx := context.Background()

	job := &testJob{interval: time.Hour}
	job.onRun = func(arg Argument) {
		if err := s.Deregister(ctx, "archive", map[string]any(arg)); err != nil {
			t.Errorf("Deregister() from job failed: %v", err)
		}
	}
	s.RegisterType("archive", job)
	if err := s.Register(ctx, "archive", map[string]any{"tag": 9}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if _, err := s.RunDue(ctx); err != nil {
		t.Fatalf("RunDue() failed: %v", err)
	}
	jobs, _ := list.ListJobs(ctx)
	if len(jobs) != 0 {
		t.Errorf("Expected registration gone, got %d", len(jobs))
	}
}

func TestScheduler_MaintenanceWindow(t *testing.T) {
	config := DefaultConfig()
	config.MaintenanceWindowStart = 22
	config.MaintenanceWindowHours = 4

	list := newTestList(t)
	s := New(list, config)
	ctx := context.Background()

	tests := []struct {
		hour int
		want bool
	}{
		{21, false},
		{22, true},
		{23, true},
		{0, true},
		{1, true},
		{2, false},
		{12, false},
	}
	for _, tt := range tests {
		at := time.Date(2024, 6, 1, tt.hour, 30, 0, 0, time.UTC)
		if got := s.InMaintenanceWindow(at); got != tt.want {
			t.Errorf("InMaintenanceWindow(%02d:30) = %v, want %v", tt.hour, got, tt.want)
		}
	}

	insensitive := &testJob{interval: time.Hour}
	sensitive := &testJob{interval: time.Hour, timeSensitive: true}
	s.RegisterType("archive", insensitive)
	s.RegisterType("urgent", sensitive)
	for _, jobType := range []string{"archive", "urgent"} {
		if err := s.Register(ctx, jobType, map[string]any{"tag": 1}); err != nil {
			t.Fatalf("Register() failed: %v", err)
		}
	}

	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	if _, err := s.RunDue(ctx); err != nil {
		t.Fatalf("RunDue() failed: %v", err)
	}
	if insensitive.runs() != 0 || sensitive.runs() != 1 {
		t.Errorf("Outside window: insensitive=%d sensitive=%d, want 0 and 1", insensitive.runs(), sensitive.runs())
	}

	s.now = func() time.Time { return time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC) }
	if _, err := s.RunDue(ctx); err != nil {
		t.Fatalf("RunDue() failed: %v", err)
	}
	if insensitive.runs() != 1 {
		t.Errorf("Inside window: insensitive=%d, want 1", insensitive.runs())
	}
}

func TestScheduler_StartStop(t *testing.T) {
	tests := []struct {
		name    string
		tick    string
		wantErr bool
	}{
		{"every", "@every 1m", false},
		{"standard", "*/5 * * * *", false},
		{"invalid", "not a schedule", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.Tick = tt.tick
			s := New(newTestList(t), config)

			err := s.Start(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if s.IsRunning() {
					t.Error("Scheduler must not run after failed start")
				}
				return
			}

			if !s.IsRunning() {
				t.Error("Expected scheduler running")
			}
			if next := s.NextRun(); next == nil || next.IsZero() {
				t.Error("Expected next run time")
			}

			s.Stop()
			if s.IsRunning() {
				t.Error("Expected scheduler stopped")
			}
		})
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	s := New(newTestList(t), nil)
	ctx, cancel := context.WithCancel(context.Background())

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.IsRunning() {
		t.Error("Expected scheduler to stop after context cancellation")
	}
}
