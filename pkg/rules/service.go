// Package rules manages the lifecycle of archive rules: every rule has
// exactly one recurring archive job, registered on create and removed on
// delete.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mdhemmi/files-archive/pkg/archive"
)

// Repository persists rules.
type Repository interface {
	CreateRule(ctx context.Context, rule *archive.Rule) error
	GetRule(ctx context.Context, id int64) (*archive.Rule, error)
	FetchByTag(ctx context.Context, tagID int64) (*archive.Rule, error)
	ListRules(ctx context.Context) ([]*archive.Rule, error)
	DeleteRule(ctx context.Context, id int64) error
}

// TagLookup checks tag existence.
type TagLookup interface {
	GetTag(ctx context.Context, id int64) (*archive.Tag, error)
}

// JobRegistry registers recurring invocations.
type JobRegistry interface {
	Register(ctx context.Context, jobType string, arg map[string]any) error
	Deregister(ctx context.Context, jobType string, arg map[string]any) error
	Has(ctx context.Context, jobType string, arg map[string]any) (bool, error)
}

// Sweeper runs one archive sweep.
type Sweeper interface {
	Run(ctx context.Context, tagID string) (*archive.SweepResult, error)
}

// RuleView is a rule as listed to clients.
type RuleView struct {
	archive.Rule
	HasJob bool `json:"hasJob"`
}

// Service implements rule create, list and delete.
type Service struct {
	repo    Repository
	tags    TagLookup
	jobs    JobRegistry
	sweeper Sweeper
	logger  *slog.Logger
}

// NewService creates a rule service.
func NewService(repo Repository, tags TagLookup, jobs JobRegistry, sweeper Sweeper) *Service {
	return &Service{
		repo:    repo,
		tags:    tags,
		jobs:    jobs,
		sweeper: sweeper,
		logger:  slog.Default().With("component", "rules"),
	}
}

func jobArgument(tagID int64) map[string]any {
	return archive.JobArgument(strconv.FormatInt(tagID, 10))
}

// List returns the rules whose tag still exists. A rule whose job is
// missing gets it registered again.
func (s *Service) List(ctx context.Context) ([]RuleView, error) {
	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]RuleView, 0, len(rules))
	for _, rule := range rules {
		if _, err := s.tags.GetTag(ctx, rule.TagID); err != nil {
			if errors.Is(err, archive.ErrTagNotFound) {
				s.logger.Debug("hiding rule of deleted tag", "rule_id", rule.ID, "tag_id", rule.TagID)
				continue
			}
			return nil, err
		}

		arg := jobArgument(rule.TagID)
		has, err := s.jobs.Has(ctx, archive.JobType, arg)
		if err != nil {
			return nil, err
		}
		if !has {
			if err := s.jobs.Register(ctx, archive.JobType, arg); err != nil {
				s.logger.Warn("failed to re-register archive job", "rule_id", rule.ID, "tag_id", rule.TagID, "error", err)
			} else {
				s.logger.Info("re-registered missing archive job", "rule_id", rule.ID, "tag_id", rule.TagID)
				has = true
			}
		}

		views = append(views, RuleView{Rule: *rule, HasJob: has})
	}
	return views, nil
}

// Validate checks rule fields and tag existence.
func (s *Service) Validate(ctx context.Context, rule *archive.Rule) error {
	if rule.TagID <= 0 {
		return &ValidationError{Field: FieldTagID, Cause: archive.ErrInvalidTagID}
	}
	if _, err := s.tags.GetTag(ctx, rule.TagID); err != nil {
		if errors.Is(err, archive.ErrTagNotFound) {
			return &ValidationError{Field: FieldTagID, Cause: err}
		}
		return err
	}
	if !rule.TimeUnit.Valid() {
		return &ValidationError{Field: FieldTimeUnit}
	}
	if rule.TimeAmount < 1 {
		return &ValidationError{Field: FieldTimeAmount}
	}
	if rule.TimeAmount > archive.MaxTimeAmount {
		return &ValidationError{Field: FieldTimeAmount, Cause: fmt.Errorf("at most %d", archive.MaxTimeAmount)}
	}
	if !rule.TimeAfter.Valid() {
		return &ValidationError{Field: FieldTimeAfter}
	}
	return nil
}

// Create validates and persists rule, then registers its job before
// returning. If registration fails the row is removed again.
func (s *Service) Create(ctx context.Context, rule *archive.Rule) error {
	if err := s.Validate(ctx, rule); err != nil {
		return err
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return err
	}

	if err := s.jobs.Register(ctx, archive.JobType, jobArgument(rule.TagID)); err != nil {
		if derr := s.repo.DeleteRule(ctx, rule.ID); derr != nil {
			s.logger.Error("failed to remove rule after job registration failed", "rule_id", rule.ID, "error", derr)
		}
		return fmt.Errorf("register archive job for tag %d: %w", rule.TagID, err)
	}

	s.logger.Info("archive rule created",
		"rule_id", rule.ID,
		"tag_id", rule.TagID,
		"time_unit", rule.TimeUnit.String(),
		"time_amount", rule.TimeAmount,
		"time_after", rule.TimeAfter.String(),
	)
	return nil
}

// Delete removes the rule and its job.
func (s *Service) Delete(ctx context.Context, id int64) error {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return err
	}
	if err := s.jobs.Deregister(ctx, archive.JobType, jobArgument(rule.TagID)); err != nil {
		return fmt.Errorf("deregister archive job for tag %d: %w", rule.TagID, err)
	}

	s.logger.Info("archive rule deleted", "rule_id", id, "tag_id", rule.TagID)
	return nil
}

// TagDeleted removes the rule bound to a deleted tag along with its job.
func (s *Service) TagDeleted(ctx context.Context, tagID int64) error {
	rule, err := s.repo.FetchByTag(ctx, tagID)
	switch {
	case errors.Is(err, archive.ErrRuleNotFound):
	case err != nil:
		return err
	default:
		if err := s.repo.DeleteRule(ctx, rule.ID); err != nil && !errors.Is(err, archive.ErrRuleNotFound) {
			return err
		}
		s.logger.Info("archive rule removed with its tag", "rule_id", rule.ID, "tag_id", tagID)
	}

	return s.jobs.Deregister(ctx, archive.JobType, jobArgument(tagID))
}

// RunNow runs a sweep for tag immediately.
func (s *Service) RunNow(ctx context.Context, tag string) (*archive.SweepResult, error) {
	if s.sweeper == nil {
		return nil, errors.New("no archive engine configured")
	}
	return s.sweeper.Run(ctx, tag)
}
