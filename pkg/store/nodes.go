package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"

	"github.com/mdhemmi/files-archive/pkg/archive"
)

const nodeColumns = `object_id, owner_id, path, name, mtime, upload_time`

// Node returns the indexed node for objectID. Permissions are left empty;
// they depend on the mount the node is reached through.
func (s *Store) Node(ctx context.Context, objectID int64) (*archive.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM file_nodes WHERE object_id = ?`, objectID)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("object %d: %w", objectID, archive.ErrNotFound)
	}
	if err != nil {
		return nil, NewStorageError(s.backend, "get_node", err)
	}
	return node, nil
}

// NodeByPath returns the indexed node at p in owner's tree.
func (s *Store) NodeByPath(ctx context.Context, owner, p string) (*archive.Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM file_nodes WHERE owner_id = ? AND path = ?`, owner, p)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s:%s: %w", owner, p, archive.ErrNotFound)
	}
	if err != nil {
		return nil, NewStorageError(s.backend, "get_node", err)
	}
	return node, nil
}

// NodesByOwner returns every indexed node of owner ordered by id.
func (s *Store) NodesByOwner(ctx context.Context, owner string) ([]*archive.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM file_nodes WHERE owner_id = ? ORDER BY object_id`, owner)
	if err != nil {
		return nil, NewStorageError(s.backend, "list_nodes", err)
	}
	defer rows.Close()

	var nodes []*archive.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, NewStorageError(s.backend, "list_nodes", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.backend, "list_nodes", err)
	}
	return nodes, nil
}

// UpsertNode indexes node by (owner, path) and sets node.ID. A known upload
// time is never replaced by an unknown one.
func (s *Store) UpsertNode(ctx context.Context, node *archive.Node) error {
	if node.Name == "" {
		node.Name = path.Base(node.Path)
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO file_nodes (owner_id, path, name, mtime, upload_time)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id, path) DO UPDATE SET
			name = excluded.name,
			mtime = excluded.mtime,
			upload_time = CASE WHEN excluded.upload_time = 0 THEN file_nodes.upload_time ELSE excluded.upload_time END
		 RETURNING object_id`,
		node.OwnerID, node.Path, node.Name, unixOrZero(node.ModTime), unixOrZero(node.UploadTime),
	).Scan(&node.ID)
	if err != nil {
		return NewStorageError(s.backend, "upsert_node", err)
	}
	return nil
}

// SetNodePath records a moved node's new location.
func (s *Store) SetNodePath(ctx context.Context, objectID int64, p string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE file_nodes SET path = ?, name = ? WHERE object_id = ?`,
		p, path.Base(p), objectID,
	)
	if err != nil {
		return NewStorageError(s.backend, "set_node_path", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return NewStorageError(s.backend, "set_node_path", err)
	}
	if n == 0 {
		return fmt.Errorf("object %d: %w", objectID, archive.ErrNotFound)
	}
	return nil
}

// DeleteNode removes a node with its mounts and tag assignments.
func (s *Store) DeleteNode(ctx context.Context, objectID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError(s.backend, "delete_node", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM file_nodes WHERE object_id = ?`,
		`DELETE FROM mounts WHERE object_id = ?`,
		`DELETE FROM tag_objects WHERE object_id = ? AND object_type = 'files'`,
	} {
		if _, err := tx.ExecContext(ctx, q, objectID); err != nil {
			return NewStorageError(s.backend, "delete_node", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError(s.backend, "delete_node", err)
	}
	return nil
}

func scanNode(row rowScanner) (*archive.Node, error) {
	var (
		node          archive.Node
		mtime, upload int64
	)
	if err := row.Scan(&node.ID, &node.OwnerID, &node.Path, &node.Name, &mtime, &upload); err != nil {
		return nil, err
	}
	node.ModTime = timeOrZero(mtime)
	node.UploadTime = timeOrZero(upload)
	return &node, nil
}
