package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mdhemmi/files-archive/pkg/archive"
)

// NodeIndex is the part of the node index the resolver and mover use.
type NodeIndex interface {
	Node(ctx context.Context, objectID int64) (*archive.Node, error)
	SetNodePath(ctx context.Context, objectID int64, path string) error
}

// Resolver implements archive.NodeResolver.
type Resolver struct {
	index      NodeIndex
	workspaces archive.Workspaces
}

// NewResolver creates a resolver over index and workspaces.
func NewResolver(index NodeIndex, workspaces archive.Workspaces) *Resolver {
	return &Resolver{index: index, workspaces: workspaces}
}

// Resolve returns the indexed node behind objectID as seen through mount.
// The file must still exist in the owner's tree. Permissions come from the
// mount.
func (r *Resolver) Resolve(ctx context.Context, ws *archive.Workspace, mount archive.MountPoint, objectID int64) (*archive.Node, error) {
	node, err := r.index.Node(ctx, objectID)
	if err != nil {
		return nil, err
	}

	// Shares are resolved through the owner's tree.
	owner := ws
	if ws == nil || ws.OwnerID != node.OwnerID {
		owner, err = r.workspaces.ForUser(ctx, node.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("owner %q of object %d: %w", node.OwnerID, objectID, err)
		}
	}

	if _, err := owner.FS.Stat(node.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("object %d at %q: %w", objectID, node.Path, archive.ErrNotFound)
		}
		return nil, err
	}

	node.Permissions = mount.Permissions
	return node, nil
}
