package filestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mdhemmi/files-archive/pkg/archive"
)

// Mover implements archive.Filesystem.
type Mover struct {
	index  NodeIndex
	logger *slog.Logger
}

// NewMover creates a mover that keeps index in sync.
func NewMover(index NodeIndex) *Mover {
	return &Mover{
		index:  index,
		logger: slog.Default().With("component", "filestore.mover"),
	}
}

// MoveNode renames node to destination inside the owner's tree and records
// the new path. It never overwrites: an existing destination is an error.
// When the index update fails the rename is undone.
func (m *Mover) MoveNode(ctx context.Context, ws *archive.Workspace, node *archive.Node, destination string) error {
	if ws.OwnerID != node.OwnerID {
		return fmt.Errorf("move object %d: workspace of %q does not own it", node.ID, ws.OwnerID)
	}

	if _, err := ws.FS.Lstat(destination); err == nil {
		return fmt.Errorf("move object %d to %q: %w", node.ID, destination, os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := ws.FS.Rename(node.Path, destination); err != nil {
		return fmt.Errorf("rename %q to %q: %w", node.Path, destination, err)
	}

	dest := relPath(destination)
	if err := m.index.SetNodePath(ctx, node.ID, dest); err != nil {
		if rerr := ws.FS.Rename(destination, node.Path); rerr != nil {
			m.logger.Error("failed to roll back move",
				"object_id", node.ID,
				"from", destination,
				"to", node.Path,
				"error", rerr,
			)
		}
		return fmt.Errorf("update index for object %d: %w", node.ID, err)
	}

	node.Path = dest
	return nil
}
