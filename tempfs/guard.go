package tempfs

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotTempPath is returned when a path carries no temp or namespace marker.
var ErrNotTempPath = errors.New("path is not a temporary file")

var defaultMarkers = []string{"temp", "tmp"}

// IsTempPath reports whether path contains a temp-directory marker or the app
// namespace. The check runs on the cleaned path, and paths that still climb
// out with ".." are never temporary.
func IsTempPath(path, namespace string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	path = filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return false
		}
	}
	lower := strings.ToLower(path)
	for _, m := range defaultMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return namespace != "" && strings.Contains(lower, strings.ToLower(namespace))
}

// RemoveTempPath deletes a single file after checking IsTempPath. Paths that
// fail the check are rejected without touching the filesystem.
func RemoveTempPath(path, namespace string) error {
	if !IsTempPath(path, namespace) {
		return fmt.Errorf("%w: %s", ErrNotTempPath, path)
	}
	path = filepath.Clean(path)
	log.Printf("Cleaning up temp file: %s", path)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}

// SweepOlderThan removes regular files in dir whose modification time is older
// than maxAge. A missing directory is not an error.
func SweepOlderThan(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) <= maxAge {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil {
			log.Printf("Failed to sweep %s: %v", p, err)
			continue
		}
		removed++
	}
	return removed, nil
}
