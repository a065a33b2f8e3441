package planner

import (
	"errors"
	"fmt"
	"sync"

	"github.com/julianstephens/studyplan/internal/lockfile"
	"github.com/julianstephens/studyplan/internal/logger"
)

// ErrPassInProgress is returned when a pass or repair tick is already
// running. Callers treat it as coalesced, not as a failure.
var ErrPassInProgress = errors.New("a planning pass is already in progress")

// Gate serializes planning passes and repair ticks. A caller that finds the
// gate held gives up instead of queueing. With a lock path set the gate
// also holds a lock file for the length of each pass, which keeps passes of
// separate processes sharing one database apart.
type Gate struct {
	mu   sync.Mutex
	path string
}

// NewGate returns a gate backed by the lock file at path. An empty path
// serializes within this process only.
func NewGate(path string) *Gate {
	return &Gate{path: path}
}

func (g *Gate) Do(fn func() error) error {
	if !g.mu.TryLock() {
		return ErrPassInProgress
	}
	defer g.mu.Unlock()

	if g.path != "" {
		lock, err := lockfile.Acquire(g.path)
		if errors.Is(err, lockfile.ErrAlreadyRunning) {
			return fmt.Errorf("%w: %w", ErrPassInProgress, err)
		}
		if err != nil {
			return fmt.Errorf("failed to take pass lock: %w", err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("failed to release pass lock", "path", g.path, "error", err)
			}
		}()
	}
	return fn()
}
