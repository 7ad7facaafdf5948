package filestore

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/go-git/go-billy/v5/util"

	"github.com/mdhemmi/files-archive/pkg/archive"
)

// ScanIndex is the part of the store the scanner writes to.
type ScanIndex interface {
	NodeByPath(ctx context.Context, owner, path string) (*archive.Node, error)
	NodesByOwner(ctx context.Context, owner string) ([]*archive.Node, error)
	UpsertNode(ctx context.Context, node *archive.Node) error
	MountsFor(ctx context.Context, objectID int64) ([]archive.MountPoint, error)
	UpsertMount(ctx context.Context, objectID int64, mount archive.MountPoint) error
	DeleteNode(ctx context.Context, objectID int64) error
}

// ScanResult counts what a scan changed.
type ScanResult struct {
	UserID  string `json:"userId"`
	Files   int    `json:"files"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
}

// Scanner indexes user trees.
type Scanner struct {
	index       ScanIndex
	workspaces  archive.Workspaces
	homeMountID func(userID string) string
	now         func() time.Time
	logger      *slog.Logger
}

// NewScanner creates a scanner. homeMountID names each user's home mount.
func NewScanner(index ScanIndex, workspaces archive.Workspaces, homeMountID func(string) string) *Scanner {
	return &Scanner{
		index:       index,
		workspaces:  workspaces,
		homeMountID: homeMountID,
		now:         time.Now,
		logger:      slog.Default().With("component", "filestore.scanner"),
	}
}

// Scan walks userID's tree. Every regular file is indexed, and a file
// without a home mount gets one with full permissions. An existing home
// mount is left as stored. Files seen for the first time get the scan time
// as upload time. Index entries whose file is gone are removed.
func (s *Scanner) Scan(ctx context.Context, userID string) (*ScanResult, error) {
	ws, err := s.workspaces.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{UserID: userID}
	seen := make(map[string]bool)
	now := s.now()

	err = util.Walk(ws.FS, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel := relPath(p)
		seen[rel] = true
		result.Files++

		node := &archive.Node{
			OwnerID: userID,
			Path:    rel,
			Name:    info.Name(),
			ModTime: info.ModTime(),
		}
		if _, err := s.index.NodeByPath(ctx, userID, rel); errors.Is(err, archive.ErrNotFound) {
			node.UploadTime = now
			result.Added++
		} else if err != nil {
			return err
		}

		if err := s.index.UpsertNode(ctx, node); err != nil {
			return err
		}
		return s.ensureHomeMount(ctx, node.ID, userID, rel)
	})
	if err != nil {
		return nil, err
	}

	known, err := s.index.NodesByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, node := range known {
		if seen[node.Path] {
			continue
		}
		if err := s.index.DeleteNode(ctx, node.ID); err != nil {
			return nil, err
		}
		result.Removed++
	}

	s.logger.Info("scanned user files",
		"user_id", userID,
		"files", result.Files,
		"added", result.Added,
		"removed", result.Removed,
	)
	return result, nil
}

// ensureHomeMount adds the owner's home mount to objectID unless it already
// has one.
func (s *Scanner) ensureHomeMount(ctx context.Context, objectID int64, userID, rel string) error {
	homeID := s.homeMountID(userID)
	mounts, err := s.index.MountsFor(ctx, objectID)
	if err != nil {
		return err
	}
	for _, m := range mounts {
		if m.MountID == homeID {
			return nil
		}
	}
	return s.index.UpsertMount(ctx, objectID, archive.MountPoint{
		MountID:     homeID,
		UserID:      userID,
		AccessPath:  rel,
		Permissions: archive.Permissions{Deletable: true, Updateable: true},
	})
}
