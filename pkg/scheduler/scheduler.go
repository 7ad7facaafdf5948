package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mdhemmi/files-archive/pkg/store"
)

// Argument is the decoded argument of a registration. Numbers decode as
// json.Number.
type Argument map[string]any

// Job is a registered job type.
type Job interface {
	// Run executes one invocation.
	Run(ctx context.Context, arg Argument) error

	// Interval is the minimum time between two runs of one registration.
	Interval() time.Duration

	// TimeSensitive reports whether the job must run outside the
	// maintenance window too.
	TimeSensitive() bool
}

// JobList persists registrations.
type JobList interface {
	AddJob(ctx context.Context, jobType, argument string) error
	RemoveJob(ctx context.Context, jobType, argument string) error
	HasJob(ctx context.Context, jobType, argument string) (bool, error)
	ListJobs(ctx context.Context) ([]*store.JobRecord, error)
	ReserveJob(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
	ReleaseJob(ctx context.Context, id int64, lastRun time.Time) error
}

// Recorder receives job run telemetry.
type Recorder interface {
	RecordJobRun(jobType, status string, duration time.Duration)
}

// Config contains scheduler configuration.
type Config struct {
	// Tick is the cron spec of the dispatcher.
	// Default: "@every 5m"
	Tick string

	// MaintenanceWindowStart is the UTC hour the maintenance window opens.
	// Negative disables the window; time-insensitive jobs then run anytime.
	// Default: -1
	MaintenanceWindowStart int

	// MaintenanceWindowHours is the window length in hours.
	// Default: 6
	MaintenanceWindowHours int

	// ReservationTimeout is how long a reservation blocks other runs of the
	// same registration. Reservations of crashed runs expire after it.
	// Default: 12 hours
	ReservationTimeout time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Tick:                   "@every 5m",
		MaintenanceWindowStart: -1,
		MaintenanceWindowHours: 6,
		ReservationTimeout:     12 * time.Hour,
	}
}

// Scheduler dispatches registered jobs.
type Scheduler struct {
	list     JobList
	config   *Config
	recorder Recorder
	now      func() time.Time

	mu      sync.Mutex
	jobs    map[string]Job
	cron    *cron.Cron
	running bool
	logger  *slog.Logger
}

// New creates a scheduler over list.
func New(list JobList, config *Config) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Scheduler{
		list:   list,
		config: config,
		now:    time.Now,
		jobs:   make(map[string]Job),
		cron:   newCron(),
		logger: slog.Default().With("component", "scheduler"),
	}
}

// newCron returns a cron runner that never overlaps ticks.
func newCron() *cron.Cron {
	return cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
}

// SetRecorder sets the telemetry recorder.
func (s *Scheduler) SetRecorder(r Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = r
}

// RegisterType makes jobType runnable.
func (s *Scheduler) RegisterType(jobType string, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobType] = job
}

// EncodeArgument returns the canonical JSON form of arg. Map keys are
// sorted, so equal arguments always encode identically.
func EncodeArgument(arg map[string]any) (string, error) {
	if arg == nil {
		return "null", nil
	}
	b, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("encode job argument: %w", err)
	}
	return string(b), nil
}

// DecodeArgument parses a persisted argument.
func DecodeArgument(raw string) (Argument, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var arg Argument
	if err := dec.Decode(&arg); err != nil {
		return nil, fmt.Errorf("decode job argument %q: %w", raw, err)
	}
	return arg, nil
}

// Register adds a recurring invocation. Registering an existing
// (jobType, argument) pair is a no-op.
func (s *Scheduler) Register(ctx context.Context, jobType string, arg map[string]any) error {
	raw, err := EncodeArgument(arg)
	if err != nil {
		return err
	}
	if err := s.list.AddJob(ctx, jobType, raw); err != nil {
		return err
	}
	s.logger.Debug("registered job", "job_type", jobType, "argument", raw)
	return nil
}

// Deregister removes a recurring invocation.
func (s *Scheduler) Deregister(ctx context.Context, jobType string, arg map[string]any) error {
	raw, err := EncodeArgument(arg)
	if err != nil {
		return err
	}
	if err := s.list.RemoveJob(ctx, jobType, raw); err != nil {
		return err
	}
	s.logger.Debug("deregistered job", "job_type", jobType, "argument", raw)
	return nil
}

// Has reports whether a recurring invocation is registered.
func (s *Scheduler) Has(ctx context.Context, jobType string, arg map[string]any) (bool, error) {
	raw, err := EncodeArgument(arg)
	if err != nil {
		return false, err
	}
	return s.list.HasJob(ctx, jobType, raw)
}

// Start begins dispatching on the configured tick. It stops when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	spec := s.config.Tick
	if spec == "" {
		spec = DefaultConfig().Tick
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid tick schedule %q: %w", spec, err)
	}

	s.cron = newCron()
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunDue(ctx); err != nil {
			s.logger.Error("scheduler tick failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started",
		"tick", spec,
		"maintenance_window_start", s.config.MaintenanceWindowStart,
		"maintenance_window_hours", s.config.MaintenanceWindowHours,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running tick to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	// The tick itself takes s.mu, so wait without holding it.
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next tick time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// InMaintenanceWindow reports whether t falls inside the maintenance window.
func (s *Scheduler) InMaintenanceWindow(t time.Time) bool {
	start, hours := s.config.MaintenanceWindowStart, s.config.MaintenanceWindowHours
	if start < 0 || hours <= 0 || hours >= 24 {
		return true
	}
	offset := (t.UTC().Hour() - start + 24) % 24
	return offset < hours
}

// RunDue runs every due registration once and returns how many ran.
func (s *Scheduler) RunDue(ctx context.Context) (int, error) {
	records, err := s.list.ListJobs(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	inWindow := s.InMaintenanceWindow(now)
	ran := 0

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return ran, err
		}

		s.mu.Lock()
		job, ok := s.jobs[rec.JobType]
		s.mu.Unlock()
		if !ok {
			s.logger.Warn("skipping job of unknown type", "job_type", rec.JobType, "job_id", rec.ID)
			continue
		}

		if !rec.LastRun.IsZero() && now.Sub(rec.LastRun) < job.Interval() {
			continue
		}
		if !job.TimeSensitive() && !inWindow {
			continue
		}

		if s.runOne(ctx, rec, job, now) {
			ran++
		}
	}
	return ran, nil
}

func (s *Scheduler) runOne(ctx context.Context, rec *store.JobRecord, job Job, now time.Time) bool {
	logger := s.logger.With("job_type", rec.JobType, "job_id", rec.ID, "argument", rec.Argument)

	reserved, err := s.list.ReserveJob(ctx, rec.ID, now, now.Add(-s.config.ReservationTimeout))
	if err != nil {
		logger.Error("failed to reserve job", "error", err)
		return false
	}
	if !reserved {
		logger.Debug("job already reserved")
		return false
	}

	started := s.now()
	status := "success"
	arg, err := DecodeArgument(rec.Argument)
	if err == nil {
		err = s.safeRun(ctx, job, arg)
	}
	if err != nil {
		status = "error"
		logger.Error("job failed", "error", err)
	} else {
		logger.Debug("job finished", "duration", s.now().Sub(started))
	}

	if err := s.list.ReleaseJob(ctx, rec.ID, now); err != nil {
		logger.Error("failed to release job", "error", err)
	}

	s.mu.Lock()
	recorder := s.recorder
	s.mu.Unlock()
	if recorder != nil {
		recorder.RecordJobRun(rec.JobType, status, s.now().Sub(started))
	}
	return true
}

func (s *Scheduler) safeRun(ctx context.Context, job Job, arg Argument) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx, arg)
}
