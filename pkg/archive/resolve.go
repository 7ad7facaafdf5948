package archive

import (
	"context"
	"errors"
	"fmt"
)

// resolveNode returns the first node reachable through any mount of
// objectID that can be moved. It returns ErrNotFound when the object has
// no mounts and ErrNotPermitted when no mount yields a movable node.
func (s *sweep) resolveNode(ctx context.Context, objectID int64) (*Node, error) {
	mounts, err := s.e.mounts.MountsFor(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("list mounts for object %d: %w", objectID, err)
	}
	if len(mounts) == 0 {
		return nil, fmt.Errorf("no mount points found for object %d: %w", objectID, ErrNotFound)
	}

	for _, mount := range mounts {
		node, err := s.resolveAtMount(ctx, mount, objectID)
		if err == nil {
			return node, nil
		}

		switch {
		case errors.Is(err, ErrNotPermitted):
			s.logger.DebugContext(ctx, "mount point has no move permissions",
				"mount_id", mount.MountID,
				"user_id", mount.UserID,
				"object_id", objectID,
			)
		default:
			s.logger.DebugContext(ctx, "object not resolvable at mount point",
				"mount_id", mount.MountID,
				"user_id", mount.UserID,
				"object_id", objectID,
				"error", err,
			)
		}
	}

	return nil, fmt.Errorf("no mount point with move permissions for object %d: %w", objectID, ErrNotPermitted)
}

func (s *sweep) resolveAtMount(ctx context.Context, mount MountPoint, objectID int64) (*Node, error) {
	ws, err := s.e.workspaces.ForUser(ctx, mount.UserID)
	if err != nil {
		return nil, fmt.Errorf("open workspace for user %q: %w: %w", mount.UserID, ErrNotFound, err)
	}

	node, err := s.e.nodes.Resolve(ctx, ws, mount, objectID)
	if err != nil {
		return nil, err
	}
	if !node.Permissions.Movable() {
		return nil, ErrNotPermitted
	}
	return node, nil
}
