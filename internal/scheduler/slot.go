package scheduler

import (
	"slices"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

// maxScanIterations bounds FindSlot independently of the horizon
const maxScanIterations = 10_000

// SlotRequest describes one session to place
type SlotRequest struct {
	Duration      time.Duration
	EarliestStart time.Time
	Window        Window
	// Horizon is the latest allowed block end. Zero means MaxLookaheadDays
	// after EarliestStart.
	Horizon  time.Time
	Priority float64
}

// Slot is a found placement. Bumped lists the lower-priority flexible
// intervals the slot overlaps; the caller must re-place their sessions.
type Slot struct {
	Start  time.Time
	End    time.Time
	Bumped []models.OccupiedInterval
}

// FindSlot returns the earliest interval of req.Duration inside the work
// window that does not overlap a blocking interval. Locked intervals always
// block; flexible ones block when their priority is at least req.Priority.
// A blocking interval also blocks its padding. Only the [Start, End) of a
// lower-priority interval counts as an overlap to bump.
func FindSlot(req SlotRequest, occupied []models.OccupiedInterval) (Slot, bool) {
	if req.Duration <= 0 || req.Duration > req.Window.Length() {
		return Slot{}, false
	}

	horizon := req.Horizon
	if horizon.IsZero() {
		horizon = req.EarliestStart.AddDate(0, 0, constants.MaxLookaheadDays)
	}

	sorted := slices.Clone(occupied)
	slices.SortFunc(sorted, func(a, b models.OccupiedInterval) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})

	blocking := func(iv models.OccupiedInterval) bool {
		return iv.IsLocked() || iv.Priority >= req.Priority
	}

	start, ok := req.Window.Clamp(req.EarliestStart)
	for range maxScanIterations {
		if !ok {
			return Slot{}, false
		}
		end := start.Add(req.Duration)
		if end.After(req.Window.dayEnd(start)) {
			start, ok = req.Window.nextDay(start)
			continue
		}
		if end.After(horizon) {
			return Slot{}, false
		}

		moved := false
		for _, iv := range sorted {
			if !iv.Start.Before(end) {
				break
			}
			if !blocking(iv) {
				continue
			}
			if busyUntil := iv.End.Add(iv.Padding); busyUntil.After(start) {
				start, ok = req.Window.Clamp(busyUntil)
				moved = true
				break
			}
		}
		if moved {
			continue
		}

		var bumped []models.OccupiedInterval
		for _, iv := range sorted {
			if !blocking(iv) && iv.Overlaps(start, end) {
				bumped = append(bumped, iv)
			}
		}
		return Slot{Start: start, End: end, Bumped: bumped}, true
	}
	return Slot{}, false
}
