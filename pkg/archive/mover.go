package archive

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
)

// ensureArchiveFolder returns the archive folder of ws, creating it when
// missing. A non-directory entry with the same name is fatal for the owner.
func (s *sweep) ensureArchiveFolder(ws *Workspace) (string, error) {
	dir := s.e.archiveFolder
	info, err := ws.FS.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", ErrArchiveNotFolder
		}
		return dir, nil
	case errors.Is(err, os.ErrNotExist):
		if err := ws.FS.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		s.logger.Info("created archive folder", "owner_id", ws.OwnerID, "folder", dir)
		return dir, nil
	default:
		return "", err
	}
}

// inArchive reports whether p lies inside the archive folder.
func (s *sweep) inArchive(p string) bool {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return strings.HasPrefix(p, s.e.archiveFolder+"/")
}

// moveToArchive relocates node into its owner's archive folder without
// overwriting anything and returns the destination path.
func (s *sweep) moveToArchive(ctx context.Context, node *Node) (string, error) {
	ws, err := s.e.workspaces.ForUser(ctx, node.OwnerID)
	if err != nil {
		return "", NewArchiveError(node.ID, "workspace", err)
	}

	dir, err := s.ensureArchiveFolder(ws)
	if err != nil {
		return "", NewArchiveError(node.ID, "archive_folder", err)
	}

	name, err := UniqueName(ws.FS, dir, node.Name)
	if err != nil {
		return "", NewArchiveError(node.ID, "probe", err)
	}

	destination := path.Join(dir, name)
	if err := s.e.fs.MoveNode(ctx, ws, node, destination); err != nil {
		return "", NewArchiveError(node.ID, "move", err)
	}

	s.logger.DebugContext(ctx, "archived file",
		"object_id", node.ID,
		"owner_id", node.OwnerID,
		"destination", destination,
	)
	return destination, nil
}

// removeTag drops the rule's tag from an archived object. Failure is logged
// and never undoes the move.
func (s *sweep) removeTag(ctx context.Context, objectID, tagID int64) bool {
	if err := s.e.index.Unassign(ctx, objectID, ObjectTypeFiles, []int64{tagID}); err != nil {
		s.logger.WarnContext(ctx, "failed to remove tag from archived file",
			"object_id", objectID,
			"tag_id", tagID,
			"error", err,
		)
		s.e.recorder.RecordUntagFailure()
		return false
	}

	s.logger.DebugContext(ctx, "removed archive tag to prevent re-archiving",
		"object_id", objectID,
		"tag_id", tagID,
	)
	return true
}
