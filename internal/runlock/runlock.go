// Package runlock guards a workspace against concurrent pipeline runs.
// Two simultaneous invocations against the same workspace would race on the
// stage logs and handoff artifacts, so the whole run holds a single advisory
// lock: a JSON lock file in the run directory, checked for owner liveness so
// a crashed run never wedges the workspace.
package runlock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	simerrors "github.com/rimuru/simpipe/internal/errors"
	"github.com/rimuru/simpipe/internal/logging"
)

// LockFileName is the name of the lock file within the run directory
const LockFileName = "pipeline.lock"

// Lock represents an acquired workspace lock
type Lock struct {
	Workspace string    `json:"workspace"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	// Internal fields (not serialized)
	lockFile string
	logger   *logging.Logger
}

// Acquire attempts to take the workspace lock, creating the run directory if
// needed. Returns an error wrapping ErrWorkspaceLocked when a live process
// already holds it; a lock left behind by a dead process is cleaned and
// re-acquired.
func Acquire(runDir, workspace string, logger *logging.Logger) (*Lock, error) {
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	lockPath := filepath.Join(runDir, LockFileName)

	// Check for existing lock
	if existing, err := readLock(lockPath); err == nil {
		if isProcessAlive(existing.PID) {
			logger.Error("failed to acquire workspace lock",
				"workspace", workspace,
				"holder_pid", existing.PID,
				"holder_host", existing.Hostname,
			)
			return nil, fmt.Errorf("%w: PID %d on %s",
				simerrors.ErrWorkspaceLocked, existing.PID, existing.Hostname)
		}
		// Stale lock - remove it
		oldPID := existing.PID
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		logger.Warn("stale workspace lock cleaned",
			"workspace", workspace, "old_pid", oldPID)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	lock := &Lock{
		Workspace: workspace,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		lockFile:  lockPath,
		logger:    logger,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL so a concurrent invocation racing us here fails cleanly.
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := readLock(lockPath); readErr == nil {
				return nil, fmt.Errorf("%w: PID %d on %s",
					simerrors.ErrWorkspaceLocked, existing.PID, existing.Hostname)
			}
			return nil, simerrors.ErrWorkspaceLocked
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	logger.Info("workspace lock acquired", "workspace", workspace, "pid", lock.PID)
	return lock, nil
}

// Release removes the lock file. Safe to call multiple times; a lock file
// now owned by a different PID is left alone.
func (l *Lock) Release() error {
	if l == nil || l.lockFile == "" {
		return nil
	}

	existing, err := readLock(l.lockFile)
	if err != nil {
		// Lock file doesn't exist or can't be read - nothing to do
		return nil
	}
	if existing.PID != l.PID {
		// Not our lock - don't remove it
		return nil
	}

	if err := os.Remove(l.lockFile); err != nil {
		return err
	}
	l.logger.Info("workspace lock released", "workspace", l.Workspace)
	return nil
}

// IsLocked reports whether a live process holds the workspace lock in
// runDir, returning the lock info when it does.
func IsLocked(runDir string) (*Lock, bool) {
	lock, err := readLock(filepath.Join(runDir, LockFileName))
	if err != nil {
		return nil, false
	}
	if !isProcessAlive(lock.PID) {
		return lock, false
	}
	return lock, true
}

// readLock reads and parses a lock file
func readLock(lockPath string) (*Lock, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}

	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	lock.lockFile = lockPath
	return &lock, nil
}

// isProcessAlive checks if a process with the given PID is still running.
// On Unix, signal 0 probes existence without affecting the process.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
