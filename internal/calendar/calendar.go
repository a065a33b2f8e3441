// Package calendar is the boundary to external calendars: reading busy time
// and exporting placed blocks.
package calendar

import (
	"context"
	"slices"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

type Event struct {
	ID      string
	Summary string
	Start   time.Time
	End     time.Time
	// Locked events are hard commitments the planner must not overlap
	Locked bool
	// Block marks events this app exported for its own blocks
	Block bool
}

type Source interface {
	Events(ctx context.Context, from, to time.Time) ([]Event, error)
}

type Exporter interface {
	// CreateEvent publishes b and returns the calendar's event id
	CreateEvent(ctx context.Context, b models.ScheduledBlock, title string) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// None is a source with no events
type None struct{}

func (None) Events(context.Context, time.Time, time.Time) ([]Event, error) {
	return nil, nil
}

// Static serves a fixed event list, clipped to the requested range
type Static []Event

func (s Static) Events(_ context.Context, from, to time.Time) ([]Event, error) {
	var out []Event
	for _, e := range s {
		if e.Start.Before(to) && from.Before(e.End) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Intervals converts the locked events into occupied intervals. Our own
// exported blocks are skipped since the store already holds them.
func Intervals(events []Event) []models.OccupiedInterval {
	var out []models.OccupiedInterval
	for _, e := range events {
		if !e.Locked || e.Block || !e.End.After(e.Start) {
			continue
		}
		out = append(out, models.OccupiedInterval{
			Start:  e.Start,
			End:    e.End,
			Kind:   constants.IntervalLocked,
			Source: constants.SourceCalendar,
		})
	}
	slices.SortFunc(out, func(a, b models.OccupiedInterval) int { return a.Start.Compare(b.Start) })
	return out
}
