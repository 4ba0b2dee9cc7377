// Package workspace provides request-scoped scratch directories.
//
// Every execution request gets its own private directory tree. The
// directory is created before any other work starts and removed on every
// exit path, so no request ever sees another request's files or leftovers
// from a failed run.
package workspace

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Workspace is an exclusively-owned scratch directory for one request.
type Workspace struct {
	Root string
}

// Path joins elements under the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Root}, elem...)...)
}

// Manager allocates and releases workspaces.
type Manager struct {
	// BaseDir is the parent directory for workspaces. Empty means the
	// system temp directory.
	BaseDir string
}

// NewManager creates a Manager rooted at baseDir.
func NewManager(baseDir string) *Manager {
	return &Manager{BaseDir: baseDir}
}

// Acquire creates a new unique workspace directory.
func (m *Manager) Acquire() (*Workspace, error) {
	dir, err := os.MkdirTemp(m.BaseDir, "podmirror-*")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &Workspace{Root: dir}, nil
}

// Release removes the workspace tree. Removal failures are logged, never
// propagated: cleanup must not mask the request's real result.
func (m *Manager) Release(w *Workspace) {
	if w == nil || w.Root == "" {
		return
	}
	if err := os.RemoveAll(w.Root); err != nil {
		log.Printf("failed to remove workspace %s: %v", w.Root, err)
	}
}
