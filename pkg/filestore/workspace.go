package filestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/mdhemmi/files-archive/pkg/archive"
)

// ErrInvalidUser is returned for user ids that cannot name a directory.
var ErrInvalidUser = errors.New("invalid user id")

// Workspaces opens per-user file trees. Handles are cached; they hold no
// per-sweep state.
type Workspaces struct {
	root   string // empty for in-memory trees
	mu     sync.Mutex
	cache  map[string]*archive.Workspace
	logger *slog.Logger
}

// NewOSWorkspaces serves trees from <dataDir>/<user>/files. Users without
// that directory do not exist.
func NewOSWorkspaces(dataDir string) *Workspaces {
	return &Workspaces{
		root:   dataDir,
		cache:  make(map[string]*archive.Workspace),
		logger: slog.Default().With("component", "filestore.workspaces"),
	}
}

// NewMemoryWorkspaces serves in-memory trees created on first use.
func NewMemoryWorkspaces() *Workspaces {
	return &Workspaces{
		cache:  make(map[string]*archive.Workspace),
		logger: slog.Default().With("component", "filestore.workspaces"),
	}
}

// ForUser returns the workspace of userID.
func (w *Workspaces) ForUser(_ context.Context, userID string) (*archive.Workspace, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if ws, ok := w.cache[userID]; ok {
		return ws, nil
	}

	var fs billy.Filesystem
	if w.root == "" {
		fs = memfs.New()
	} else {
		dir := w.filesDir(userID)
		info, err := os.Stat(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("user %q: %w", userID, archive.ErrNotFound)
			}
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("user %q: files root is not a directory: %w", userID, archive.ErrNotFound)
		}
		fs = osfs.New(dir, osfs.WithBoundOS())
	}

	ws := &archive.Workspace{OwnerID: userID, FS: fs}
	w.cache[userID] = ws
	w.logger.Debug("opened workspace", "user_id", userID)
	return ws, nil
}

// Users lists the users with a file tree, sorted.
func (w *Workspaces) Users() ([]string, error) {
	if w.root == "" {
		w.mu.Lock()
		defer w.mu.Unlock()
		users := make([]string, 0, len(w.cache))
		for user := range w.cache {
			users = append(users, user)
		}
		sort.Strings(users)
		return users, nil
	}

	entries, err := os.ReadDir(w.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var users []string
	for _, entry := range entries {
		if !entry.IsDir() || validateUser(entry.Name()) != nil {
			continue
		}
		if info, err := os.Stat(w.filesDir(entry.Name())); err == nil && info.IsDir() {
			users = append(users, entry.Name())
		}
	}
	return users, nil
}

func (w *Workspaces) filesDir(userID string) string {
	return filepath.Join(w.root, userID, "files")
}

func validateUser(userID string) error {
	if userID == "" || userID == "." || userID == ".." || strings.ContainsAny(userID, `/\`) {
		return fmt.Errorf("%q: %w", userID, ErrInvalidUser)
	}
	return nil
}

// relPath converts a billy path into the index form: slash separated,
// relative to the owner's root.
func relPath(p string) string {
	p = filepath.ToSlash(filepath.Clean(p))
	return strings.TrimPrefix(p, "/")
}
