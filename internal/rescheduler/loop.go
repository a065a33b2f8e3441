package rescheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/planner"
)

// Loop runs Tick periodically. Settings read by each tick are applied
// immediately: disabling auto-reschedule stops the loop and a new check
// interval resets the ticker.
type Loop struct {
	r      *Rescheduler
	parent context.Context

	// applyMu serializes Apply and Stop so a restart is never interleaved
	applyMu sync.Mutex

	mu       sync.Mutex
	gen      int
	runCtx   context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration
	onTick   func(TickResult, error)
	// runs counts live run goroutines
	runs int

	intervalOf func(models.Settings) time.Duration
}

func NewLoop(ctx context.Context, r *Rescheduler) *Loop {
	return &Loop{r: r, parent: ctx, intervalOf: models.Settings.CheckInterval}
}

// OnTick registers a callback run after every tick. fn runs on the loop's
// goroutine and must not call Apply or Stop.
func (l *Loop) OnTick(fn func(TickResult, error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onTick = fn
}

// Apply starts, restarts or stops the loop to match s
func (l *Loop) Apply(s models.Settings) {
	l.applyMu.Lock()
	defer l.applyMu.Unlock()

	if !s.AutoRescheduleEnabled {
		l.stop()
		return
	}

	l.mu.Lock()
	if l.cancel != nil && l.interval == l.intervalOf(s) {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.stop()
	l.start(l.intervalOf(s))
}

func (l *Loop) start(interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ctx, cancel := context.WithCancel(l.parent)
	l.gen++
	l.runCtx = ctx
	l.cancel = cancel
	l.done = make(chan struct{})
	l.interval = interval
	l.runs++
	go l.run(ctx, l.gen, interval, l.done)
	logger.Info("repair loop started", "interval", interval)
}

// Stop cancels the loop and waits for a running tick to return
func (l *Loop) Stop() {
	l.applyMu.Lock()
	defer l.applyMu.Unlock()
	l.stop()
}

func (l *Loop) stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logger.Info("repair loop stopped")
}

// Running reports whether the loop is active
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Done is closed when the current run ends, or nil when none is active
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func (l *Loop) run(ctx context.Context, gen int, interval time.Duration, done chan struct{}) {
	defer close(done)
	defer func() {
		l.mu.Lock()
		l.runs--
		if l.gen == gen && l.cancel != nil {
			l.cancel()
			l.cancel, l.done = nil, nil
		}
		l.mu.Unlock()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		res, err := l.r.Tick(ctx)
		switch {
		case errors.Is(err, planner.ErrPassInProgress):
			logger.Debug("repair tick skipped, pass in progress")
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			logger.Error("repair tick failed", "error", err)
		}

		l.mu.Lock()
		fn := l.onTick
		l.mu.Unlock()
		if fn != nil {
			fn(res, err)
		}
		if err != nil {
			continue
		}

		if !res.Settings.AutoRescheduleEnabled {
			logger.Info("auto-reschedule disabled, stopping repair loop")
			return
		}
		if next := l.intervalOf(res.Settings); next != interval {
			interval = next
			ticker.Reset(interval)
			l.mu.Lock()
			if l.gen == gen {
				l.interval = interval
			}
			l.mu.Unlock()
			logger.Info("repair loop interval changed", "interval", interval)
		}
	}
}
