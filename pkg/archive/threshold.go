package archive

import (
	"fmt"
	"time"
)

// MaxTimeAmount bounds a rule's time amount. Larger amounts overflow the
// calendar arithmetic.
const MaxTimeAmount = 10000

// ArchiveBefore returns the cutoff for a rule evaluated at now. Months and
// years use calendar arithmetic: AddDate normalizes overflowing days the
// same way date-interval subtraction does (March 31 minus one month is
// March 3 in a non-leap year). The cutoff is always before now.
func ArchiveBefore(now time.Time, unit TimeUnit, amount int) (time.Time, error) {
	if amount < 1 || amount > MaxTimeAmount {
		return time.Time{}, fmt.Errorf("time amount must be between 1 and %d, got %d", MaxTimeAmount, amount)
	}

	var before time.Time
	switch unit {
	case UnitDay:
		before = now.AddDate(0, 0, -amount)
	case UnitWeek:
		before = now.AddDate(0, 0, -7*amount)
	case UnitMonth:
		before = now.AddDate(0, -amount, 0)
	case UnitYear:
		before = now.AddDate(-amount, 0, 0)
	default:
		return time.Time{}, fmt.Errorf("unknown time unit %d", unit)
	}
	if !before.Before(now) {
		return time.Time{}, fmt.Errorf("cutoff %v for %d %s is not before %v", before, amount, unit, now)
	}
	return before, nil
}

// EffectiveTime returns the timestamp a rule compares against.
//
// In creation mode the upload time wins when known. In modification mode the
// mtime is used unless the upload happened later, which happens for imported
// files that keep an old mtime.
func EffectiveTime(node *Node, mode TimeAfterMode) time.Time {
	switch {
	case mode == ModeCreationTime && !node.UploadTime.IsZero():
		return node.UploadTime
	case mode == ModeModificationTime && node.ModTime.Before(node.UploadTime):
		return node.UploadTime
	default:
		return node.ModTime
	}
}

// Eligible reports whether node is old enough to be archived.
func Eligible(node *Node, mode TimeAfterMode, archiveBefore time.Time) bool {
	return EffectiveTime(node, mode).Before(archiveBefore)
}
