package rules

import (
	"fmt"

	"github.com/mdhemmi/files-archive/pkg/archive"
	"github.com/mdhemmi/files-archive/pkg/store"
)

// Validation fields reported by Create.
const (
	FieldTagID      = "tagid"
	FieldTimeUnit   = "timeunit"
	FieldTimeAmount = "timeamount"
	FieldTimeAfter  = "timeafter"
)

var (
	// ErrRuleNotFound is returned when a rule id does not exist.
	ErrRuleNotFound = archive.ErrRuleNotFound

	// ErrDuplicateRule is returned when the tag already has a rule.
	ErrDuplicateRule = store.ErrDuplicateRule
)

// ValidationError reports the first invalid field of a rule.
type ValidationError struct {
	Field string
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Cause)
	}
	return fmt.Sprintf("invalid %s", e.Field)
}

// Unwrap returns the underlying cause error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}
