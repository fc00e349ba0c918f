// Package workdir manages the ephemeral per-identifier scratch directories
// that hold raw fetched pages during a conversion attempt. Directories are
// removed unconditionally when the attempt ends, and a startup sweep clears
// anything a crashed run left behind.
package workdir

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bindery/internal/logging"
	"bindery/internal/services"
)

// Dir returns the working directory for id under root.
func Dir(root, id string) string {
	return filepath.Join(root, id)
}

// Create makes the working directory for id, including parents.
func Create(root, id string) (string, error) {
	path := Dir(root, id)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", services.Wrap(services.ErrWrite, "workdir", "create", "create working directory", err)
	}
	return path, nil
}

// Remove deletes the working directory for id. A missing directory is not
// an error; removal must be safe to call on every exit path.
func Remove(root, id string, logger *slog.Logger) {
	path := Dir(root, id)
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		if logger != nil {
			logger.Warn("failed to remove working directory",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"))
		}
	}
}

// CleanStaleResult contains the outcome of a stale directory sweep.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes working directories older than maxAge. Run at startup
// to reclaim scratch space left behind by interrupted conversions.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale working directory",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "workdir_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check work_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"))
			}
			continue
		}

		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.InfoContext(ctx, "removed stale working directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "workdir_cleanup"))
		}
	}

	return result
}
