// Package storage manages the on-disk data layout used in file-store mode
// and by the durable health log.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Dirs manages the set of directories the platform requires on disk.
type Dirs struct {
	paths []string
}

// NewDirs creates a manager for the given required directories.
func NewDirs(paths []string) *Dirs {
	return &Dirs{paths: paths}
}

// Ensure verifies every required directory exists, creating missing ones.
// It returns the paths that were freshly created. Only a creation failure
// (typically permissions) is an error; a missing directory is not.
func (d *Dirs) Ensure() ([]string, error) {
	var created []string
	for _, path := range d.paths {
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return created, fmt.Errorf("stat %s: %w", path, err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return created, fmt.Errorf("create %s: %w", path, err)
		}
		created = append(created, path)
	}
	return created, nil
}

// Paths returns the managed directory list.
func (d *Dirs) Paths() []string {
	return d.paths
}

// HealthLog is an append-only newline-delimited JSON log of health
// snapshots. Appends are serialized; a failed append is reported to the
// caller and must never fail the health check that produced the entry.
type HealthLog struct {
	mu   sync.Mutex
	path string
}

// NewHealthLog creates a log writer for the given file path.
func NewHealthLog(path string) *HealthLog {
	return &HealthLog{path: path}
}

// Path returns the log file location.
func (l *HealthLog) Path() string {
	return l.path
}

// Append marshals v and writes it as one line to the log file, creating the
// file (and its directory) if needed.
func (l *HealthLog) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal health log entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open health log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append health log: %w", err)
	}
	return nil
}
