package store

import (
	"context"

	"github.com/mdhemmi/files-archive/pkg/archive"
)

// MountsFor returns the mount points of an object. The owner's home mount
// sorts first so it is tried before shares.
func (s *Store) MountsFor(ctx context.Context, objectID int64) ([]archive.MountPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.mount_id, m.user_id, m.access_path, m.deletable, m.updateable
		 FROM mounts m
		 LEFT JOIN file_nodes n ON n.object_id = m.object_id
		 WHERE m.object_id = ?
		 ORDER BY CASE WHEN m.user_id = n.owner_id THEN 0 ELSE 1 END, m.mount_id`,
		objectID,
	)
	if err != nil {
		return nil, NewStorageError(s.backend, "mounts_for", err)
	}
	defer rows.Close()

	var mounts []archive.MountPoint
	for rows.Next() {
		var m archive.MountPoint
		if err := rows.Scan(&m.MountID, &m.UserID, &m.AccessPath, &m.Permissions.Deletable, &m.Permissions.Updateable); err != nil {
			return nil, NewStorageError(s.backend, "mounts_for", err)
		}
		mounts = append(mounts, m)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.backend, "mounts_for", err)
	}
	return mounts, nil
}

// UpsertMount records that objectID is reachable through mount.
func (s *Store) UpsertMount(ctx context.Context, objectID int64, mount archive.MountPoint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mounts (mount_id, user_id, object_id, access_path, deletable, updateable)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (mount_id, object_id) DO UPDATE SET
			user_id = excluded.user_id,
			access_path = excluded.access_path,
			deletable = excluded.deletable,
			updateable = excluded.updateable`,
		mount.MountID, mount.UserID, objectID, mount.AccessPath,
		mount.Permissions.Deletable, mount.Permissions.Updateable,
	)
	if err != nil {
		return NewStorageError(s.backend, "upsert_mount", err)
	}
	return nil
}

// DeleteMount removes one mount of an object.
func (s *Store) DeleteMount(ctx context.Context, objectID int64, mountID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM mounts WHERE mount_id = ? AND object_id = ?`, mountID, objectID,
	); err != nil {
		return NewStorageError(s.backend, "delete_mount", err)
	}
	return nil
}

// HomeMountID returns the id of a user's home mount.
func HomeMountID(userID string) string {
	return "home::" + userID
}
