package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipcontext/internal/logging"
)

// CleanStaleResult contains the outcome of a stale session cleanup.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// IsSessionDir reports whether name looks like a session work directory.
func IsSessionDir(name string) bool {
	_, err := uuid.Parse(name)
	return err == nil
}

// CleanStale removes session directories under workRoot older than maxAge.
// Only directories named by a session UUID are considered; anything else in
// the work root is left alone.
func CleanStale(ctx context.Context, workRoot string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	workRoot = strings.TrimSpace(workRoot)
	if workRoot == "" || maxAge <= 0 {
		return result
	}

	entries, err := os.ReadDir(workRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: workRoot, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || !IsSessionDir(entry.Name()) {
			continue
		}

		dirPath := filepath.Join(workRoot, entry.Name())
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
				logger.Warn("failed to remove stale session directory",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "session_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check paths.work_root permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale session directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "session_cleanup"),
			)
		}
	}

	return result
}

// DirInfo contains metadata about a session directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ListSessions returns the session directories under workRoot, newest first.
func ListSessions(workRoot string) ([]DirInfo, error) {
	workRoot = strings.TrimSpace(workRoot)
	if workRoot == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(workRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !IsSessionDir(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(workRoot, entry.Name())
		size, _ := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].ModTime.After(dirs[j].ModTime) })
	return dirs, nil
}

// dirSize sums file sizes below path. Unreadable entries are skipped.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
