package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/mdhemmi/files-archive/pkg/telemetry/logging"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mdhemmi/files-archive/pkg/archive"

// Config contains configuration for the archive engine.
type Config struct {
	// PageSize is the number of tagged object ids fetched per page.
	// Default: 1000
	PageSize int

	// ArchiveFolder is the folder name under each owner's root.
	// Default: ".archive"
	ArchiveFolder string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		PageSize:      DefaultPageSize,
		ArchiveFolder: DefaultArchiveFolder,
		Now:           time.Now,
	}
}

// Dependencies are the collaborators the engine drives. Recorder may be nil.
type Dependencies struct {
	Catalog    TagCatalog
	Rules      RuleStore
	Index      TagIndex
	Mounts     MountResolver
	Workspaces Workspaces
	Nodes      NodeResolver
	FS         Filesystem
	Jobs       Deregisterer
	Recorder   Recorder
}

// Engine runs archive sweeps. It holds no per-sweep state and is safe to
// share between sweeps of different tags. Two concurrent sweeps of the same
// tag are not supported; the scheduler prevents them.
type Engine struct {
	catalog    TagCatalog
	rules      RuleStore
	index      TagIndex
	mounts     MountResolver
	workspaces Workspaces
	nodes      NodeResolver
	fs         Filesystem
	jobs       Deregisterer
	recorder   Recorder

	pageSize      int
	archiveFolder string
	now           func() time.Time
	logger        *slog.Logger
	tracer        trace.Tracer
}

// NewEngine creates a new archive engine.
func NewEngine(deps Dependencies, config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	switch {
	case deps.Catalog == nil:
		return nil, errors.New("archive engine: tag catalog is required")
	case deps.Rules == nil:
		return nil, errors.New("archive engine: rule store is required")
	case deps.Index == nil:
		return nil, errors.New("archive engine: tag index is required")
	case deps.Mounts == nil:
		return nil, errors.New("archive engine: mount resolver is required")
	case deps.Workspaces == nil:
		return nil, errors.New("archive engine: workspaces are required")
	case deps.Nodes == nil:
		return nil, errors.New("archive engine: node resolver is required")
	case deps.FS == nil:
		return nil, errors.New("archive engine: filesystem is required")
	case deps.Jobs == nil:
		return nil, errors.New("archive engine: deregisterer is required")
	}

	e := &Engine{
		catalog:       deps.Catalog,
		rules:         deps.Rules,
		index:         deps.Index,
		mounts:        deps.Mounts,
		workspaces:    deps.Workspaces,
		nodes:         deps.Nodes,
		fs:            deps.FS,
		jobs:          deps.Jobs,
		recorder:      deps.Recorder,
		pageSize:      config.PageSize,
		archiveFolder: strings.Trim(path.Clean("/"+config.ArchiveFolder), "/"),
		now:           config.Now,
		logger:        slog.Default().With("component", "archive.engine"),
		tracer:        otel.Tracer(tracerName),
	}
	if e.recorder == nil {
		e.recorder = noopRecorder{}
	}
	if e.pageSize <= 0 {
		e.pageSize = DefaultPageSize
	}
	if e.archiveFolder == "" {
		e.archiveFolder = DefaultArchiveFolder
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// ArchiveFolder returns the archive folder name used by the engine.
func (e *Engine) ArchiveFolder() string {
	return e.archiveFolder
}

// sweep carries the state of one Run.
type sweep struct {
	e             *Engine
	logger        *slog.Logger
	rule          *Rule
	archiveBefore time.Time
	stats         SweepStats
}

// Run executes one full sweep for the rule bound to tagID.
//
// A dead tag or a missing rule deregisters the recurring invocation and
// returns OutcomeSelfDeregistered without error. A storage error before
// paging starts returns OutcomeFailed. Failures for single objects are
// logged and counted; only a failing page request aborts a started sweep.
func (e *Engine) Run(ctx context.Context, tagID string) (*SweepResult, error) {
	started := e.now()
	result := &SweepResult{
		SweepID: uuid.NewString(),
		TagID:   tagID,
	}
	ctx = logging.WithSweepID(ctx, result.SweepID)
	logger := logging.FromContext(ctx, e.logger).With("tag", tagID)

	ctx, span := e.tracer.Start(ctx, "archive.sweep",
		trace.WithAttributes(
			attribute.String("archive.sweep_id", result.SweepID),
			attribute.String("archive.tag", tagID),
		),
	)
	defer span.End()

	defer func() {
		result.Duration = e.now().Sub(started)
		e.recorder.RecordSweep(result.Outcome, result.Duration)
		span.SetAttributes(
			attribute.String("archive.outcome", result.Outcome.String()),
			attribute.Int("archive.archived", result.Stats.Archived),
			attribute.Int("archive.failed", result.Stats.Failed),
		)
	}()

	tag, err := e.catalog.Resolve(ctx, tagID)
	switch {
	case errors.Is(err, ErrInvalidTagID):
		return e.selfDeregister(ctx, logger, result, "tag is invalid", err)
	case errors.Is(err, ErrTagNotFound):
		return e.selfDeregister(ctx, logger, result, "tag no longer exists", err)
	case err != nil:
		result.Outcome = OutcomeFailed
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("resolve tag %q: %w", tagID, err)
	}

	rule, err := e.rules.FetchByTag(ctx, tag.ID)
	switch {
	case errors.Is(err, ErrRuleNotFound):
		return e.selfDeregister(ctx, logger, result, "tag has no archive rule configured", err)
	case err != nil:
		result.Outcome = OutcomeFailed
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("fetch rule for tag %d: %w", tag.ID, err)
	}

	archiveBefore, err := ArchiveBefore(started, rule.TimeUnit, rule.TimeAmount)
	if err != nil {
		result.Outcome = OutcomeFailed
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("rule %d: %w", rule.ID, err)
	}
	result.ArchiveBefore = archiveBefore

	s := &sweep{
		e:             e,
		logger:        logger.With("rule_id", rule.ID),
		rule:          rule,
		archiveBefore: archiveBefore,
	}
	s.logger.DebugContext(ctx, "running archive sweep",
		"archive_before", archiveBefore.Format(time.RFC3339),
		"time_after", rule.TimeAfter.String(),
	)

	err = s.run(ctx)
	result.Stats = s.stats
	if err != nil {
		result.Outcome = OutcomeFatalPaginationError
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "archive sweep aborted", "error", err)
		return result, err
	}

	result.Outcome = OutcomeCompleted
	s.logger.InfoContext(ctx, "archive sweep completed",
		"seen", s.stats.Seen,
		"archived", s.stats.Archived,
		"skipped", s.stats.Skipped,
		"failed", s.stats.Failed,
		"untag_failures", s.stats.UntagFailures,
	)
	return result, nil
}

// selfDeregister removes the sweep's own recurring invocation. A failure to
// deregister is logged; the next firing will try again.
func (e *Engine) selfDeregister(ctx context.Context, logger *slog.Logger, result *SweepResult, reason string, cause error) (*SweepResult, error) {
	result.Outcome = OutcomeSelfDeregistered
	if err := e.jobs.Deregister(ctx, JobType, JobArgument(result.TagID)); err != nil {
		logger.WarnContext(ctx, "failed to remove archive job", "reason", reason, "error", err)
		return result, nil
	}
	logger.DebugContext(ctx, "archive job was removed", "reason", reason, "cause", cause)
	return result, nil
}

// run pages through the tag's members. The cursor is the last id of the
// previous page; a page shorter than the page size is the last one.
func (s *sweep) run(ctx context.Context) error {
	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, err := s.e.index.Page(ctx, s.rule.TagID, ObjectTypeFiles, s.e.pageSize, after)
		if err != nil {
			return &PaginationError{TagID: s.rule.TagID, AfterID: after, Cause: err}
		}
		s.logger.DebugContext(ctx, "checking archive for page", "count", len(ids), "after_id", after)

		for _, id := range ids {
			s.process(ctx, id)
		}

		if len(ids) < s.e.pageSize {
			return nil
		}
		after = ids[len(ids)-1]
	}
}

// process handles one object. Nothing it does aborts the sweep.
func (s *sweep) process(ctx context.Context, objectID int64) {
	s.stats.Seen++

	defer func() {
		if r := recover(); r != nil {
			s.stats.Failed++
			s.e.recorder.RecordArchiveFailure()
			s.logger.ErrorContext(ctx, "panic while archiving file", "object_id", objectID, "panic", r)
		}
	}()

	node, err := s.resolveNode(ctx, objectID)
	if err != nil {
		s.stats.Skipped++
		reason := SkipNotPermitted
		if errors.Is(err, ErrNotFound) {
			reason = SkipNoMount
		}
		s.e.recorder.RecordSkipped(reason)
		s.logger.DebugContext(ctx, "skipping unresolvable file", "object_id", objectID, "error", err)
		return
	}

	if s.inArchive(node.Path) {
		// Moved by an earlier sweep whose untag failed.
		s.stats.Skipped++
		s.e.recorder.RecordSkipped(SkipAlreadyArchived)
		s.logger.DebugContext(ctx, "file already archived, retrying tag removal", "object_id", objectID, "path", node.Path)
		if !s.removeTag(ctx, objectID, s.rule.TagID) {
			s.stats.UntagFailures++
		}
		return
	}

	if !Eligible(node, s.rule.TimeAfter, s.archiveBefore) {
		s.stats.Skipped++
		s.e.recorder.RecordSkipped(SkipNotEligible)
		s.logger.DebugContext(ctx, "skipping file from archiving", "object_id", objectID)
		return
	}

	s.archive(ctx, node)
}

func (s *sweep) archive(ctx context.Context, node *Node) {
	ctx, span := s.e.tracer.Start(ctx, "archive.move",
		trace.WithAttributes(attribute.Int64("archive.object_id", node.ID)),
	)
	defer span.End()

	s.logger.DebugContext(ctx, "archiving file", "object_id", node.ID, "owner_id", node.OwnerID)
	if _, err := s.moveToArchive(ctx, node); err != nil {
		s.stats.Failed++
		s.e.recorder.RecordArchiveFailure()
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "failed to archive file", "object_id", node.ID, "error", err)
		return
	}

	s.stats.Archived++
	s.e.recorder.RecordArchived()
	if !s.removeTag(ctx, node.ID, s.rule.TagID) {
		s.stats.UntagFailures++
	}
}
