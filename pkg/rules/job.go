package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdhemmi/files-archive/pkg/archive"
	"github.com/mdhemmi/files-archive/pkg/scheduler"
)

// DefaultJobInterval is how often each rule is swept.
const DefaultJobInterval = 24 * time.Hour

// ArchiveJob runs the archive engine for scheduler registrations of type
// archive.JobType.
type ArchiveJob struct {
	sweeper  Sweeper
	jobs     JobRegistry
	interval time.Duration
	logger   *slog.Logger
}

// NewArchiveJob creates the job. A zero interval means DefaultJobInterval.
func NewArchiveJob(sweeper Sweeper, jobs JobRegistry, interval time.Duration) *ArchiveJob {
	if interval <= 0 {
		interval = DefaultJobInterval
	}
	return &ArchiveJob{
		sweeper:  sweeper,
		jobs:     jobs,
		interval: interval,
		logger:   slog.Default().With("component", "rules.job"),
	}
}

// Run sweeps the tag named by arg["tag"]. Registrations without a tag can
// never succeed and are removed.
func (j *ArchiveJob) Run(ctx context.Context, arg scheduler.Argument) error {
	raw, ok := arg["tag"]
	if !ok {
		j.logger.Warn("removing archive job without tag argument", "argument", arg)
		return j.jobs.Deregister(ctx, archive.JobType, arg)
	}

	result, err := j.sweeper.Run(ctx, fmt.Sprint(raw))
	if err != nil {
		return err
	}
	j.logger.Debug("archive job finished", "tag", result.TagID, "outcome", result.Outcome.String())
	return nil
}

// Interval implements scheduler.Job.
func (j *ArchiveJob) Interval() time.Duration {
	return j.interval
}

// TimeSensitive implements scheduler.Job. Archiving can wait for the
// maintenance window.
func (j *ArchiveJob) TimeSensitive() bool {
	return false
}
