package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mdhemmi/files-archive/pkg/archive"
)

const ruleColumns = `id, tag_id, time_unit, time_amount, time_after`

// ErrDuplicateRule is returned when a rule already exists for a tag.
var ErrDuplicateRule = errors.New("archive rule for tag already exists")

// CreateRule inserts rule and sets its ID.
func (s *Store) CreateRule(ctx context.Context, rule *archive.Rule) error {
	existing, err := s.FetchByTag(ctx, rule.TagID)
	if err == nil {
		return fmt.Errorf("tag %d has rule %d: %w", rule.TagID, existing.ID, ErrDuplicateRule)
	}
	if !errors.Is(err, archive.ErrRuleNotFound) {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO archive_rules (tag_id, time_unit, time_amount, time_after) VALUES (?, ?, ?, ?)`,
		rule.TagID, int(rule.TimeUnit), rule.TimeAmount, int(rule.TimeAfter),
	)
	if err != nil {
		return NewStorageError(s.backend, "create_rule", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return NewStorageError(s.backend, "create_rule", err)
	}
	rule.ID = id
	return nil
}

// GetRule returns the rule with the given id.
func (s *Store) GetRule(ctx context.Context, id int64) (*archive.Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM archive_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, archive.ErrRuleNotFound)
	}
	if err != nil {
		return nil, NewStorageError(s.backend, "get_rule", err)
	}
	return rule, nil
}

// FetchByTag returns the rule bound to tagID.
func (s *Store) FetchByTag(ctx context.Context, tagID int64) (*archive.Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM archive_rules WHERE tag_id = ?`, tagID)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag %d: %w", tagID, archive.ErrRuleNotFound)
	}
	if err != nil {
		return nil, NewStorageError(s.backend, "fetch_rule", err)
	}
	return rule, nil
}

// ListRules returns all rules ordered by id.
func (s *Store) ListRules(ctx context.Context) ([]*archive.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM archive_rules ORDER BY id`)
	if err != nil {
		return nil, NewStorageError(s.backend, "list_rules", err)
	}
	defer rows.Close()

	var rules []*archive.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, NewStorageError(s.backend, "list_rules", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.backend, "list_rules", err)
	}
	return rules, nil
}

// DeleteRule removes the rule with the given id.
func (s *Store) DeleteRule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM archive_rules WHERE id = ?`, id)
	if err != nil {
		return NewStorageError(s.backend, "delete_rule", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return NewStorageError(s.backend, "delete_rule", err)
	}
	if n == 0 {
		return fmt.Errorf("rule %d: %w", id, archive.ErrRuleNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*archive.Rule, error) {
	var (
		rule            archive.Rule
		unit, timeAfter int
	)
	if err := row.Scan(&rule.ID, &rule.TagID, &unit, &rule.TimeAmount, &timeAfter); err != nil {
		return nil, err
	}
	rule.TimeUnit = archive.TimeUnit(unit)
	rule.TimeAfter = archive.TimeAfterMode(timeAfter)
	return &rule, nil
}
