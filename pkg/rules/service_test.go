package rules

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/mdhemmi/files-archive/pkg/archive"
	"github.com/mdhemmi/files-archive/pkg/scheduler"
	"github.com/mdhemmi/files-archive/pkg/store"
)

type fakeSweeper struct {
	tags []string
	err  error
}

func (f *fakeSweeper) Run(_ context.Context, tag string) (*archive.SweepResult, error) {
	f.tags = append(f.tags, tag)
	if f.err != nil {
		return nil, f.err
	}
	return &archive.SweepResult{TagID: tag, Outcome: archive.OutcomeCompleted}, nil
}

type testEnv struct {
	store   *store.Store
	sched   *scheduler.Scheduler
	sweeper *fakeSweeper
	service *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	config := store.DefaultConfig()
	config.Path = filepath.Join(t.TempDir(), "rules.db")
	st, err := store.Open(config)
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	sched := scheduler.New(st, nil)
	sweeper := &fakeSweeper{}
	return &testEnv{
		store:   st,
		sched:   sched,
		sweeper: sweeper,
		service: NewService(st, st, sched, sweeper),
	}
}

func (e *testEnv) createTag(t *testing.T, name string) int64 {
	t.Helper()
	tag := &archive.Tag{Name: name, UserVisible: true, UserAssignable: true}
	if err := e.store.CreateTag(context.Background(), tag); err != nil {
		t.Fatalf("CreateTag() failed: %v", err)
	}
	return tag.ID
}

func (e *testEnv) hasJob(t *testing.T, tagID int64) bool {
	t.Helper()
	has, err := e.sched.Has(context.Background(), archive.JobType, map[string]any{"tag": tagID})
	if err != nil {
		t.Fatalf("Has() failed: %v", err)
	}
	return has
}

func TestService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	tagID := env.createTag(t, "old stuff")

	tests := []struct {
		name      string
		rule      archive.Rule
		wantField string
	}{
		{"unknown tag", archive.Rule{TagID: 999, TimeUnit: archive.UnitDay, TimeAmount: 1}, FieldTagID},
		{"missing tag", archive.Rule{TimeUnit: archive.UnitDay, TimeAmount: 1}, FieldTagID},
		{"bad unit", archive.Rule{TagID: tagID, TimeUnit: 4, TimeAmount: 1}, FieldTimeUnit},
		{"negative unit", archive.Rule{TagID: tagID, TimeUnit: -1, TimeAmount: 1}, FieldTimeUnit},
		{"zero amount", archive.Rule{TagID: tagID, TimeUnit: archive.UnitWeek, TimeAmount: 0}, FieldTimeAmount},
		{"huge amount", archive.Rule{TagID: tagID, TimeUnit: archive.UnitWeek, TimeAmount: math.MaxInt / 7}, FieldTimeAmount},
		{"amount above limit", archive.Rule{TagID: tagID, TimeUnit: archive.UnitYear, TimeAmount: archive.MaxTimeAmount + 1}, FieldTimeAmount},
		{"bad mode", archive.Rule{TagID: tagID, TimeUnit: archive.UnitWeek, TimeAmount: 2, TimeAfter: 2}, FieldTimeAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.rule
			err := env.service.Create(context.Background(), &rule)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}

	rules, _ := env.store.ListRules(context.Background())
	if len(rules) != 0 {
		t.Errorf("Invalid rules must not be persisted, got %d", len(rules))
	}
}

func TestService_CreateRegistersJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tagID := env.createTag(t, "old stuff")

	rule := &archive.Rule{TagID: tagID, TimeUnit: archive.UnitMonth, TimeAmount: 3, TimeAfter: archive.ModeModificationTime}
	if err := env.service.Create(ctx, rule); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if rule.ID == 0 {
		t.Error("Expected rule id to be set")
	}
	if !env.hasJob(t, tagID) {
		t.Error("Expected archive job registered on create")
	}

	dup := &archive.Rule{TagID: tagID, TimeUnit: archive.UnitDay, TimeAmount: 1}
	if err := env.service.Create(ctx, dup); !errors.Is(err, ErrDuplicateRule) {
		t.Errorf("Expected ErrDuplicateRule, got %v", err)
	}

	jobs, _ := env.store.ListJobs(ctx)
	if len(jobs) != 1 {
		t.Errorf("Expected exactly one job, got %d", len(jobs))
	}
}

func TestService_List(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	live := env.createTag(t, "live")
	dead := env.createTag(t, "dead")

	for _, tagID := range []int64{live, dead} {
		if err := env.service.Create(ctx, &archive.Rule{TagID: tagID, TimeUnit: archive.UnitDay, TimeAmount: 5}); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	// Tag removed behind the service's back; job removed as well.
	if err := env.store.DeleteTag(ctx, dead); err != nil {
		t.Fatalf("DeleteTag() failed: %v", err)
	}
	if err := env.sched.Deregister(ctx, archive.JobType, map[string]any{"tag": live}); err != nil {
		t.Fatalf("Deregister() failed: %v", err)
	}

	views, err := env.service.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("Expected only the live rule, got %d", len(views))
	}
	if views[0].TagID != live || !views[0].HasJob {
		t.Errorf("Unexpected view: %+v", views[0])
	}
	if !env.hasJob(t, live) {
		t.Error("Expected missing job re-registered by List")
	}

	b, err := json.Marshal(views[0])
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	for _, key := range []string{"id", "tagid", "timeunit", "timeamount", "timeafter", "hasJob"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Expected key %q in %s", key, b)
		}
	}
}

func TestService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tagID := env.createTag(t, "t")

	rule := &archive.Rule{TagID: tagID, TimeUnit: archive.UnitYear, TimeAmount: 1}
	if err := env.service.Create(ctx, rule); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := env.service.Delete(ctx, rule.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if env.hasJob(t, tagID) {
		t.Error("Expected job removed with rule")
	}
	if err := env.service.Delete(ctx, rule.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Expected ErrRuleNotFound, got %v", err)
	}
}

func TestService_TagDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tagID := env.createTag(t, "t")

	if err := env.service.Create(ctx, &archive.Rule{TagID: tagID, TimeUnit: archive.UnitDay, TimeAmount: 1}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := env.service.TagDeleted(ctx, tagID); err != nil {
		t.Fatalf("TagDeleted() failed: %v", err)
	}
	if _, err := env.store.FetchByTag(ctx, tagID); !errors.Is(err, archive.ErrRuleNotFound) {
		t.Errorf("Expected rule removed, got %v", err)
	}
	if env.hasJob(t, tagID) {
		t.Error("Expected job removed")
	}

	// Deleting a tag without rule is fine.
	if err := env.service.TagDeleted(ctx, 12345); err != nil {
		t.Errorf("TagDeleted() without rule failed: %v", err)
	}
}

func TestService_RunNow(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.service.RunNow(context.Background(), "5")
	if err != nil {
		t.Fatalf("RunNow() failed: %v", err)
	}
	if result.TagID != "5" || len(env.sweeper.tags) != 1 {
		t.Errorf("Unexpected run: %+v, calls %v", result, env.sweeper.tags)
	}
}

func TestArchiveJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := NewArchiveJob(env.sweeper, env.sched, 0)

	if job.Interval() != DefaultJobInterval {
		t.Errorf("Interval() = %v, want %v", job.Interval(), DefaultJobInterval)
	}
	if job.TimeSensitive() {
		t.Error("Archive job must not be time sensitive")
	}

	if err := job.Run(ctx, scheduler.Argument{"tag": json.Number("8")}); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(env.sweeper.tags) != 1 || env.sweeper.tags[0] != "8" {
		t.Errorf("Sweeper called with %v, want [8]", env.sweeper.tags)
	}

	env.sweeper.err = errors.New("tag index unavailable")
	if err := job.Run(ctx, scheduler.Argument{"tag": json.Number("8")}); err == nil {
		t.Error("Expected sweep error to propagate")
	}

	// A registration without tag removes itself.
	bogus := map[string]any{"other": 1}
	if err := env.sched.Register(ctx, archive.JobType, bogus); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := job.Run(ctx, scheduler.Argument{"other": json.Number("1")}); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if has, _ := env.sched.Has(ctx, archive.JobType, bogus); has {
		t.Error("Expected registration without tag removed")
	}
}
