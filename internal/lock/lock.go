// Package lock keeps two processes from running the same bot identity.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("another aminobot instance is already running for this device")

var unsafeChars = regexp.MustCompile(`[^\w\-.]`)

// InstanceLock is a file lock keyed by device id.
type InstanceLock struct {
	file *flock.Flock
	path string
}

// sanitize turns a device id into a safe file name.
func sanitize(id string) string {
	s := unsafeChars.ReplaceAllString(id, "-")
	s = strings.Trim(s, ".-")
	if s == "" {
		s = "default"
	}
	return s
}

// New creates the lock for deviceID under dir. Nothing is acquired yet.
func New(dir, deviceID string) (*InstanceLock, error) {
	lockDir := filepath.Join(dir, "locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := filepath.Join(lockDir, sanitize(deviceID)+".lock")
	return &InstanceLock{file: flock.New(path), path: path}, nil
}

// TryLock acquires the lock without blocking.
func (l *InstanceLock) TryLock() error {
	locked, err := l.file.TryLock()
	if err != nil {
		return fmt.Errorf("try lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	return nil
}

// Unlock releases the lock. The file stays on disk so every process locks the
// same inode.
func (l *InstanceLock) Unlock() error {
	if err := l.file.Unlock(); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string { return l.path }
