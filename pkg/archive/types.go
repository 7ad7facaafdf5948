package archive

import (
	"context"
	"strconv"
	"time"

	"github.com/go-git/go-billy/v5"
)

// ObjectTypeFiles is the object type tag assignments are looked up under.
const ObjectTypeFiles = "files"

// DefaultArchiveFolder is the folder created under each owner's root.
const DefaultArchiveFolder = ".archive"

// DefaultPageSize is the number of tagged object ids requested per page.
const DefaultPageSize = 1000

// JobType identifies archive sweeps in the scheduler.
const JobType = "archive"

// TimeUnit is the unit of a rule's age threshold.
// Values match the persisted encoding.
type TimeUnit int

const (
	UnitDay TimeUnit = iota
	UnitWeek
	UnitMonth
	UnitYear
)

// Valid reports whether u is a known unit.
func (u TimeUnit) Valid() bool {
	return u >= UnitDay && u <= UnitYear
}

func (u TimeUnit) String() string {
	switch u {
	case UnitDay:
		return "day"
	case UnitWeek:
		return "week"
	case UnitMonth:
		return "month"
	case UnitYear:
		return "year"
	default:
		return "unknown"
	}
}

// TimeAfterMode selects which timestamp of a file the threshold applies to.
type TimeAfterMode int

const (
	// ModeCreationTime uses the upload time, falling back to mtime.
	ModeCreationTime TimeAfterMode = iota
	// ModeModificationTime uses mtime unless the upload is newer.
	ModeModificationTime
)

// Valid reports whether m is a known mode.
func (m TimeAfterMode) Valid() bool {
	return m == ModeCreationTime || m == ModeModificationTime
}

func (m TimeAfterMode) String() string {
	switch m {
	case ModeCreationTime:
		return "creation_time"
	case ModeModificationTime:
		return "modification_time"
	default:
		return "unknown"
	}
}

// Rule is a persisted archive rule bound to one tag.
type Rule struct {
	ID         int64         `json:"id"`
	TagID      int64         `json:"tagid"`
	TimeUnit   TimeUnit      `json:"timeunit"`
	TimeAmount int           `json:"timeamount"`
	TimeAfter  TimeAfterMode `json:"timeafter"`
}

// Tag is a system tag as known to the tag catalog.
type Tag struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	UserVisible    bool   `json:"userVisible"`
	UserAssignable bool   `json:"userAssignable"`
}

// Permissions are the access flags a mount grants on a node.
type Permissions struct {
	Deletable  bool `json:"deletable"`
	Updateable bool `json:"updateable"`
}

// Movable reports whether both flags required for a move are set.
func (p Permissions) Movable() bool {
	return p.Deletable && p.Updateable
}

// MountPoint is one location through which an object is reachable.
// An object may have several (its owner's home plus any shares).
type MountPoint struct {
	MountID     string      `json:"mountId"`
	UserID      string      `json:"userId"`
	AccessPath  string      `json:"accessPath"`
	Permissions Permissions `json:"permissions"`
}

// Node is a filesystem object resolved for one sweep. It is never cached
// across sweeps.
type Node struct {
	ID          int64
	Name        string
	Path        string // relative to the owner's root
	OwnerID     string
	ModTime     time.Time
	UploadTime  time.Time // zero when unknown
	Permissions Permissions
}

// Workspace is an initialized access handle onto one user's file tree.
// It is passed down explicitly instead of relying on process-wide state.
type Workspace struct {
	OwnerID string
	FS      billy.Filesystem
}

// SweepOutcome is the result of a single engine run.
type SweepOutcome int

const (
	OutcomeCompleted SweepOutcome = iota
	OutcomeSelfDeregistered
	OutcomeFatalPaginationError
	// OutcomeFailed means the sweep could not start: the tag catalog or
	// rule store failed, or the rule yields no usable cutoff.
	OutcomeFailed
)

func (o SweepOutcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeSelfDeregistered:
		return "self_deregistered"
	case OutcomeFatalPaginationError:
		return "pagination_error"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SweepStats counts what a sweep did.
type SweepStats struct {
	Seen          int `json:"seen"`
	Archived      int `json:"archived"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
	UntagFailures int `json:"untagFailures"`
}

// SweepResult is returned by Engine.Run.
type SweepResult struct {
	SweepID       string        `json:"sweepId"`
	TagID         string        `json:"tag"`
	Outcome       SweepOutcome  `json:"-"`
	ArchiveBefore time.Time     `json:"archiveBefore"`
	Stats         SweepStats    `json:"stats"`
	Duration      time.Duration `json:"-"`
}

// TagCatalog validates tag ids.
type TagCatalog interface {
	// Resolve returns ErrInvalidTagID for malformed ids and ErrTagNotFound
	// for ids that do not exist.
	Resolve(ctx context.Context, tagID string) (*Tag, error)
}

// RuleStore reads rules for the engine.
type RuleStore interface {
	// FetchByTag returns ErrRuleNotFound when no rule is bound to the tag.
	FetchByTag(ctx context.Context, tagID int64) (*Rule, error)
}

// TagIndex maps tags to the objects carrying them.
type TagIndex interface {
	// Page returns up to limit object ids carrying the tag whose id is
	// greater than afterID. Fewer than limit ids means the last page.
	Page(ctx context.Context, tagID int64, objectType string, limit int, afterID int64) ([]int64, error)
	Unassign(ctx context.Context, objectID int64, objectType string, tagIDs []int64) error
}

// MountResolver lists the mount points an object is reachable through.
type MountResolver interface {
	MountsFor(ctx context.Context, objectID int64) ([]MountPoint, error)
}

// Workspaces opens access handles per user.
type Workspaces interface {
	ForUser(ctx context.Context, userID string) (*Workspace, error)
}

// NodeResolver resolves an object through one mount point. It returns
// ErrNotFound or ErrNotPermitted (possibly wrapped) on failure.
type NodeResolver interface {
	Resolve(ctx context.Context, ws *Workspace, mount MountPoint, objectID int64) (*Node, error)
}

// Filesystem performs the move of a node within its owner's workspace.
type Filesystem interface {
	MoveNode(ctx context.Context, ws *Workspace, node *Node, destination string) error
}

// Deregisterer removes the recurring invocation of a job.
type Deregisterer interface {
	Deregister(ctx context.Context, jobType string, argument map[string]any) error
}

// Recorder receives sweep telemetry. All methods must be safe to call
// concurrently.
type Recorder interface {
	RecordSweep(outcome SweepOutcome, duration time.Duration)
	RecordArchived()
	RecordSkipped(reason string)
	RecordArchiveFailure()
	RecordUntagFailure()
}

// Skip reasons reported to the Recorder.
const (
	SkipNoMount         = "no_mount"
	SkipNotPermitted    = "not_permitted"
	SkipNotEligible     = "not_eligible"
	SkipAlreadyArchived = "already_archived"
)

type noopRecorder struct{}

func (noopRecorder) RecordSweep(SweepOutcome, time.Duration) {}
func (noopRecorder) RecordArchived()                         {}
func (noopRecorder) RecordSkipped(string)                    {}
func (noopRecorder) RecordArchiveFailure()                   {}
func (noopRecorder) RecordUntagFailure()                     {}

// JobArgument returns the scheduler argument of the sweep for a tag.
// Numeric ids are stored as numbers so registrations made from a rule row
// and deregistrations made from a raw argument encode identically.
func JobArgument(tagID string) map[string]any {
	if n, err := strconv.ParseInt(tagID, 10, 64); err == nil {
		return map[string]any{"tag": n}
	}
	return map[string]any{"tag": tagID}
}
