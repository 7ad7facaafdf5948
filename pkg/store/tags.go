package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mdhemmi/files-archive/pkg/archive"
)

// ParseTagID parses a tag id. Valid ids are positive decimal integers.
func ParseTagID(tagID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(tagID), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q: %w", tagID, archive.ErrInvalidTagID)
	}
	return id, nil
}

// Resolve returns the tag identified by tagID.
func (s *Store) Resolve(ctx context.Context, tagID string) (*archive.Tag, error) {
	id, err := ParseTagID(tagID)
	if err != nil {
		return nil, err
	}
	return s.GetTag(ctx, id)
}

// GetTag returns the tag with the given id.
func (s *Store) GetTag(ctx context.Context, id int64) (*archive.Tag, error) {
	var tag archive.Tag
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, user_visible, user_assignable FROM system_tags WHERE id = ?`, id,
	).Scan(&tag.ID, &tag.Name, &tag.UserVisible, &tag.UserAssignable)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag %d: %w", id, archive.ErrTagNotFound)
	}
	if err != nil {
		return nil, NewStorageError(s.backend, "get_tag", err)
	}
	return &tag, nil
}

// CreateTag inserts tag and sets its ID.
func (s *Store) CreateTag(ctx context.Context, tag *archive.Tag) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO system_tags (name, user_visible, user_assignable) VALUES (?, ?, ?)`,
		tag.Name, tag.UserVisible, tag.UserAssignable,
	)
	if err != nil {
		return NewStorageError(s.backend, "create_tag", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return NewStorageError(s.backend, "create_tag", err)
	}
	tag.ID = id
	return nil
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]*archive.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, user_visible, user_assignable FROM system_tags ORDER BY name, id`)
	if err != nil {
		return nil, NewStorageError(s.backend, "list_tags", err)
	}
	defer rows.Close()

	var tags []*archive.Tag
	for rows.Next() {
		var tag archive.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.UserVisible, &tag.UserAssignable); err != nil {
			return nil, NewStorageError(s.backend, "list_tags", err)
		}
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.backend, "list_tags", err)
	}
	return tags, nil
}

// DeleteTag removes a tag together with all of its assignments.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError(s.backend, "delete_tag", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM system_tags WHERE id = ?`, id)
	if err != nil {
		return NewStorageError(s.backend, "delete_tag", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return NewStorageError(s.backend, "delete_tag", err)
	}
	if n == 0 {
		return fmt.Errorf("tag %d: %w", id, archive.ErrTagNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tag_objects WHERE tag_id = ?`, id); err != nil {
		return NewStorageError(s.backend, "delete_tag", err)
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError(s.backend, "delete_tag", err)
	}
	return nil
}

// Page returns up to limit ids of objects carrying tagID, ordered by id and
// strictly greater than afterID.
func (s *Store) Page(ctx context.Context, tagID int64, objectType string, limit int, afterID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT object_id FROM tag_objects
		 WHERE tag_id = ? AND object_type = ? AND object_id > ?
		 ORDER BY object_id
		 LIMIT ?`,
		tagID, objectType, afterID, limit,
	)
	if err != nil {
		return nil, NewStorageError(s.backend, "page_tagged", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, NewStorageError(s.backend, "page_tagged", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.backend, "page_tagged", err)
	}
	return ids, nil
}

// Assign adds tags to an object. Existing assignments are kept.
func (s *Store) Assign(ctx context.Context, objectID int64, objectType string, tagIDs []int64) error {
	return s.withTagTx(ctx, "assign_tags", tagIDs, func(tx *sql.Tx, tagID int64) error {
		if _, err := s.getTagTx(ctx, tx, tagID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tag_objects (tag_id, object_type, object_id) VALUES (?, ?, ?)
			 ON CONFLICT DO NOTHING`,
			tagID, objectType, objectID,
		)
		return err
	})
}

// Unassign removes tags from an object. Missing assignments are ignored.
func (s *Store) Unassign(ctx context.Context, objectID int64, objectType string, tagIDs []int64) error {
	return s.withTagTx(ctx, "unassign_tags", tagIDs, func(tx *sql.Tx, tagID int64) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM tag_objects WHERE tag_id = ? AND object_type = ? AND object_id = ?`,
			tagID, objectType, objectID,
		)
		return err
	})
}

// TagsFor returns the ids of the tags assigned to an object.
func (s *Store) TagsFor(ctx context.Context, objectID int64, objectType string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag_id FROM tag_objects WHERE object_type = ? AND object_id = ? ORDER BY tag_id`,
		objectType, objectID,
	)
	if err != nil {
		return nil, NewStorageError(s.backend, "tags_for", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, NewStorageError(s.backend, "tags_for", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.backend, "tags_for", err)
	}
	return ids, nil
}

func (s *Store) getTagTx(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
	var found int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM system_tags WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("tag %d: %w", id, archive.ErrTagNotFound)
	}
	return found, err
}

func (s *Store) withTagTx(ctx context.Context, op string, tagIDs []int64, fn func(tx *sql.Tx, tagID int64) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError(s.backend, op, err)
	}
	defer tx.Rollback()

	for _, tagID := range tagIDs {
		if err := fn(tx, tagID); err != nil {
			if errors.Is(err, archive.ErrTagNotFound) {
				return err
			}
			return NewStorageError(s.backend, op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError(s.backend, op, err)
	}
	return nil
}
