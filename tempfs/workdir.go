// Package tempfs owns the filesystem side of a run: per-run working directories,
// the artifacts minted inside them, and the guard used before deleting temp paths.
package tempfs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/lithammer/shortuuid/v4"
)

// WorkDir is a per-run working directory. Every path handed out by Path is
// tracked and removed by Cleanup.
type WorkDir struct {
	dir string

	mu      sync.Mutex
	tracked []string
	closed  bool
}

// NewWorkDir creates a uniquely named directory under root. The namespace is
// part of the directory name so the paths pass IsTempPath.
func NewWorkDir(root, namespace string) (*WorkDir, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("could not create temp root: %w", err)
	}
	dir, err := os.MkdirTemp(root, fmt.Sprintf("%s_run_%s_", namespace, shortuuid.New()))
	if err != nil {
		return nil, fmt.Errorf("could not create work directory: %w", err)
	}
	return &WorkDir{dir: dir}, nil
}

// Dir returns the directory path.
func (w *WorkDir) Dir() string {
	return w.dir
}

// Path returns a path for name inside the work directory and tracks it for cleanup.
func (w *WorkDir) Path(name string) string {
	p := filepath.Join(w.dir, filepath.Base(name))
	w.Track(p)
	return p
}

// Track registers an externally created path for cleanup.
func (w *WorkDir) Track(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracked = append(w.tracked, path)
}

// Tracked returns a copy of every tracked path in creation order.
func (w *WorkDir) Tracked() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.tracked))
	copy(out, w.tracked)
	return out
}

// Cleanup deletes every tracked path and then the directory itself. It is
// best-effort: failures are logged and returned as a count, never as an error.
// Calling it more than once is a no-op.
func (w *WorkDir) Cleanup() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0
	}
	w.closed = true

	failed := 0
	for _, p := range w.tracked {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove temp artifact %s: %v", p, err)
			failed++
		}
	}
	if err := os.RemoveAll(w.dir); err != nil {
		log.Printf("Failed to remove work directory %s: %v", w.dir, err)
		failed++
	}
	return failed
}
