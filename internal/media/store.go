package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"multivox/internal/logging"
	"multivox/internal/services"
)

// ValidateFilename rejects anything that is not a single plain file name inside
// the storage directory.
func ValidateFilename(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return services.Wrap(services.ErrBadRequest, "files", "validate filename", "filename required", nil)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return services.Wrap(services.ErrBadRequest, "files", "validate filename", fmt.Sprintf("invalid filename %q", name), nil)
	case !filepath.IsLocal(name), filepath.Base(name) != name:
		return services.Wrap(services.ErrBadRequest, "files", "validate filename", fmt.Sprintf("invalid filename %q", name), nil)
	}
	return nil
}

// Open returns the stored asset named filename. Callers must close the file.
func Open(storageDir, filename string) (*os.File, os.FileInfo, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, nil, err
	}
	path := filepath.Join(storageDir, filename)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, services.Wrap(services.ErrNotFound, "files", "open", fmt.Sprintf("file %q not found", filename), nil)
		}
		return nil, nil, services.Wrap(services.ErrAcquisition, "files", "open", "open stored file", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, services.Wrap(services.ErrAcquisition, "files", "open", "stat stored file", err)
	}
	if !info.Mode().IsRegular() {
		_ = file.Close()
		return nil, nil, services.Wrap(services.ErrNotFound, "files", "open", fmt.Sprintf("file %q not found", filename), nil)
	}
	return file, info, nil
}

// FileInfo describes one stored asset.
type FileInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// List returns stored assets, newest first.
func List(storageDir string) ([]FileInfo, error) {
	storageDir = strings.TrimSpace(storageDir)
	if storageDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(storageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []FileInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(storageDir, entry.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ModTime.After(files[j].ModTime) })
	return files, nil
}

// SweepResult contains the outcome of a retention sweep.
type SweepResult struct {
	Removed []string
	Freed   int64
	Errors  []SweepError
}

// SweepError pairs a file path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// Sweep removes stored assets older than maxAge. A non-positive maxAge keeps
// everything.
func Sweep(ctx context.Context, storageDir string, maxAge time.Duration, logger *slog.Logger) SweepResult {
	result := SweepResult{}
	if maxAge <= 0 {
		return result
	}
	files, err := List(storageDir)
	if err != nil {
		result.Errors = append(result.Errors, SweepError{Path: storageDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		if !file.ModTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(file.Path); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: file.Path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove expired media",
					logging.String("path", file.Path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "retention_sweep_failed"),
					logging.String(logging.FieldErrorHint, "check storage_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, file.Path)
		result.Freed += file.Size
		if logger != nil {
			logger.Info("removed expired media",
				logging.String("path", file.Path),
				logging.Duration("age", time.Since(file.ModTime)),
				logging.String(logging.FieldEventType, "retention_sweep"),
			)
		}
	}
	return result
}
