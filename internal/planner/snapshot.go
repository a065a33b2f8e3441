package planner

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/studyplan/internal/calendar"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage"
)

// Snapshot is everything a pass reads, captured once at its start
type Snapshot struct {
	Now      time.Time
	Settings models.Settings
	Energy   models.EnergyProfile
	Tasks    []models.Task
	Blocks   []models.ScheduledBlock
	Overflow []models.Overflow
	Events   []calendar.Event
}

// LoadSnapshot reads the store and the calendar concurrently. Calendar events
// are fetched for [now, now+lookaheadDays).
func LoadSnapshot(ctx context.Context, store storage.Provider, source calendar.Source, now time.Time, lookaheadDays int) (Snapshot, error) {
	if source == nil {
		source = calendar.None{}
	}
	if lookaheadDays <= 0 {
		lookaheadDays = constants.MaxLookaheadDays
	}

	snap := Snapshot{Now: now}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if snap.Settings, err = store.GetSettings(); err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.Energy, err = store.GetEnergyProfile(); err != nil {
			return fmt.Errorf("failed to load energy profile: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.Tasks, err = store.GetAllTasks(); err != nil {
			return fmt.Errorf("failed to load tasks: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.Blocks, err = store.GetAllBlocks(); err != nil {
			return fmt.Errorf("failed to load blocks: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.Overflow, err = store.GetOverflow(); err != nil {
			return fmt.Errorf("failed to load overflow: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.Events, err = source.Events(gctx, now, now.AddDate(0, 0, lookaheadDays)); err != nil {
			return fmt.Errorf("failed to load calendar events: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Occupied returns the locked calendar intervals followed by every stored
// block. Done blocks are locked, all others flexible.
func (s Snapshot) Occupied() []models.OccupiedInterval {
	out := calendar.Intervals(s.Events)
	for _, b := range s.Blocks {
		kind := constants.IntervalFlexible
		if b.Status == constants.BlockDone {
			kind = constants.IntervalLocked
		}
		out = append(out, models.BlockInterval(b, kind))
	}
	return out
}

// LockedIntervals is the calendar busy time plus done blocks
func (s Snapshot) LockedIntervals() []models.OccupiedInterval {
	var out []models.OccupiedInterval
	for _, iv := range s.Occupied() {
		if iv.IsLocked() {
			out = append(out, iv)
		}
	}
	return out
}

// Task looks up a task by id
func (s Snapshot) Task(id string) (models.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// TaskBlocks returns the stored blocks of one task
func (s Snapshot) TaskBlocks(taskID string) []models.ScheduledBlock {
	var out []models.ScheduledBlock
	for _, b := range s.Blocks {
		if b.TaskID == taskID {
			out = append(out, b)
		}
	}
	return out
}

// TaskOverflow returns the stored overflow entries of one task
func (s Snapshot) TaskOverflow(taskID string) []models.Overflow {
	var out []models.Overflow
	for _, o := range s.Overflow {
		if o.Session.TaskID == taskID {
			out = append(out, o)
		}
	}
	return out
}
