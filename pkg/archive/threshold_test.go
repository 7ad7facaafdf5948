package archive

import (
	"math"
	"testing"
	"time"
)

func TestArchiveBefore(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		unit   TimeUnit
		amount int
		want   time.Time
	}{
		{"days", UnitDay, 10, time.Date(2024, time.June, 5, 12, 0, 0, 0, time.UTC)},
		{"weeks", UnitWeek, 2, time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)},
		{"months", UnitMonth, 3, time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)},
		{"years", UnitYear, 1, time.Date(2023, time.June, 15, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArchiveBefore(now, tt.unit, tt.amount)
			if err != nil {
				t.Fatalf("ArchiveBefore() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ArchiveBefore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArchiveBefore_MonthOverflow(t *testing.T) {
	now := time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC)

	got, err := ArchiveBefore(now, UnitMonth, 1)
	if err != nil {
		t.Fatalf("ArchiveBefore() error = %v", err)
	}

	// February 31 normalizes to March 3 in a non-leap year.
	want := time.Date(2023, time.March, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ArchiveBefore() = %v, want %v", got, want)
	}
}

func TestArchiveBefore_Invalid(t *testing.T) {
	now := time.Now()

	if _, err := ArchiveBefore(now, UnitDay, 0); err == nil {
		t.Error("Expected error for zero amount")
	}
	if _, err := ArchiveBefore(now, UnitDay, -3); err == nil {
		t.Error("Expected error for negative amount")
	}
	if _, err := ArchiveBefore(now, TimeUnit(9), 1); err == nil {
		t.Error("Expected error for unknown unit")
	}
}

func TestArchiveBefore_LargeAmounts(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		unit   TimeUnit
		amount int
	}{
		{"weeks overflow", UnitWeek, math.MaxInt / 7},
		{"years overflow", UnitYear, math.MaxInt / 2},
		{"days above limit", UnitDay, MaxTimeAmount + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArchiveBefore(now, tt.unit, tt.amount)
			if err == nil {
				t.Errorf("Expected error, got cutoff %v", got)
			}
		})
	}

	got, err := ArchiveBefore(now, UnitYear, MaxTimeAmount)
	if err != nil {
		t.Fatalf("ArchiveBefore() error = %v", err)
	}
	if !got.Before(now) {
		t.Errorf("Expected cutoff before %v, got %v", now, got)
	}
}

func TestEffectiveTime(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		node Node
		mode TimeAfterMode
		want time.Time
	}{
		{
			name: "creation uses upload time",
			node: Node{ModTime: recent, UploadTime: old},
			mode: ModeCreationTime,
			want: old,
		},
		{
			name: "creation falls back to mtime",
			node: Node{ModTime: recent},
			mode: ModeCreationTime,
			want: recent,
		},
		{
			name: "modification uses mtime",
			node: Node{ModTime: recent, UploadTime: old},
			mode: ModeModificationTime,
			want: recent,
		},
		{
			name: "modification prefers newer upload",
			node: Node{ModTime: old, UploadTime: recent},
			mode: ModeModificationTime,
			want: recent,
		},
		{
			name: "modification without upload time",
			node: Node{ModTime: old},
			mode: ModeModificationTime,
			want: old,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveTime(&tt.node, tt.mode)
			if !got.Equal(tt.want) {
				t.Errorf("EffectiveTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEligible_StrictlyBefore(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if Eligible(&Node{ModTime: cutoff}, ModeModificationTime, cutoff) {
		t.Error("File exactly at the cutoff must not be eligible")
	}
	if !Eligible(&Node{ModTime: cutoff.Add(-time.Second)}, ModeModificationTime, cutoff) {
		t.Error("File one second before the cutoff must be eligible")
	}
}
