package archive

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTagID is returned by a TagCatalog for malformed tag ids.
	ErrInvalidTagID = errors.New("invalid tag id")

	// ErrTagNotFound is returned by a TagCatalog for unknown tags.
	ErrTagNotFound = errors.New("tag not found")

	// ErrRuleNotFound is returned by a RuleStore when no rule is bound to a tag.
	ErrRuleNotFound = errors.New("archive rule not found")

	// ErrNotFound means an object or node could not be located.
	ErrNotFound = errors.New("node not found")

	// ErrNotPermitted means a node is reachable but cannot be moved.
	ErrNotPermitted = errors.New("not permitted")

	// ErrArchiveNotFolder means the archive folder name is taken by a file.
	ErrArchiveNotFolder = errors.New("archive folder exists but is not a folder")
)

// ArchiveError describes a failure while archiving a single object.
type ArchiveError struct {
	ObjectID int64  // Object being archived
	Op       string // Step that failed ("archive_folder", "probe", "move")
	Cause    error  // Underlying error
}

// Error implements the error interface.
func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive error [object_id=%d, op=%s]: %v", e.ObjectID, e.Op, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ArchiveError) Unwrap() error {
	return e.Cause
}

// NewArchiveError creates a new ArchiveError.
func NewArchiveError(objectID int64, op string, cause error) *ArchiveError {
	return &ArchiveError{
		ObjectID: objectID,
		Op:       op,
		Cause:    cause,
	}
}

// PaginationError wraps a failure of the tag index while enumerating.
// It is the only error that aborts a sweep.
type PaginationError struct {
	TagID   int64
	AfterID int64
	Cause   error
}

// Error implements the error interface.
func (e *PaginationError) Error() string {
	return fmt.Sprintf("pagination error [tag_id=%d, after_id=%d]: %v", e.TagID, e.AfterID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PaginationError) Unwrap() error {
	return e.Cause
}
