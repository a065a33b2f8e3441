// Package lockfile keeps a single holder per lock across studyplan processes.
// The watch daemon holds one for its lifetime and planning passes hold
// another while they run. The lock file holds "pid|started"; a lock whose
// process is gone or is some other program is stale and taken over.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/logger"
)

var (
	ErrAlreadyRunning = errors.New("another studyplan process is running")

	findProcessFunc = ps.FindProcess
	currentPID      = os.Getpid
)

type Lock struct {
	path string
	pid  int
}

// Info is the content of a lock file
type Info struct {
	PID     int
	Started time.Time
}

// Acquire takes the lock at path
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := Read(path); err == nil {
		if alive(info.PID) {
			return nil, fmt.Errorf("%w (pid %d since %s)", ErrAlreadyRunning, info.PID, info.Started.Format(constants.DateTimeFormat))
		}
		logger.Info("removing stale lock file", "path", path, "pid", info.PID)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		logger.Warn("replacing unreadable lock file", "path", path, "error", err)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove lock file: %w", err)
		}
	}

	pid := currentPID()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%d|%s\n", pid, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	return &Lock{path: path, pid: pid}, nil
}

// Release removes the lock file if it still names this process
func (l *Lock) Release() error {
	info, err := Read(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.PID != l.pid {
		return nil
	}
	return os.Remove(l.path)
}

func Read(path string) (Info, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	pidStr, started, ok := strings.Cut(strings.TrimSpace(string(content)), "|")
	if !ok {
		return Info{}, errors.New("lock file is malformed")
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return Info{}, errors.New("invalid process ID in lock file")
	}
	ts, err := time.Parse(time.RFC3339, started)
	if err != nil {
		return Info{}, fmt.Errorf("invalid start time in lock file: %w", err)
	}
	return Info{PID: pid, Started: ts}, nil
}

// Holder reports the live process holding the lock at path, if any
func Holder(path string) (Info, bool) {
	info, err := Read(path)
	if err != nil || !alive(info.PID) {
		return Info{}, false
	}
	return info, true
}

func alive(pid int) bool {
	if pid == currentPID() {
		return true
	}
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return false
	}
	return strings.HasPrefix(process.Executable(), constants.AppName)
}
