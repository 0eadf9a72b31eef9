package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cleanup removes WAL files whose modification time is older than maxAge.
// The currently open file is never older than the process, so it survives.
func Cleanup(dir string, maxAge time.Duration) (removed int, err error) {
	files, err := filepath.Glob(filepath.Join(dir, "proxsync-*.wal"))
	if err != nil {
		return 0, fmt.Errorf("failed to list WAL files: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", file, err)
			}
			removed++
		}
	}
	return removed, nil
}
