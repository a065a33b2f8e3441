package scheduler

import (
	"slices"
	"time"

	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
	"github.com/julianstephens/studyplan/internal/validation"
)

// Window is the daily work-hour range sessions may be placed in
type Window struct {
	StartMin int // minutes after midnight
	EndMin   int
	WorkDays []time.Weekday // empty means every day
	Location *time.Location
}

// WindowFromSettings derives the placement window from user settings
func WindowFromSettings(s models.Settings) (Window, error) {
	b, err := validation.BoundsFromSettings(s)
	if err != nil {
		return Window{}, err
	}
	return Window(b), nil
}

// Bounds converts w for use with the validator
func (w Window) Bounds() validation.Bounds {
	return validation.Bounds(w)
}

// Length is the usable time in one work day
func (w Window) Length() time.Duration {
	return time.Duration(w.EndMin-w.StartMin) * time.Minute
}

func (w Window) location() *time.Location {
	if w.Location == nil {
		return time.Local
	}
	return w.Location
}

func (w Window) isWorkDay(t time.Time) bool {
	return len(w.WorkDays) == 0 || slices.Contains(w.WorkDays, t.Weekday())
}

// dayEnd is the end of the window on t's day
func (w Window) dayEnd(t time.Time) time.Time {
	return utils.AtMinute(t, w.EndMin)
}

// nextDay returns the window start of the first work day after t's day
func (w Window) nextDay(t time.Time) (time.Time, bool) {
	return w.Clamp(utils.StartOfDay(t).AddDate(0, 0, 1))
}

// Clamp moves t forward into the window: before the start of a work day it
// snaps to the start, at or after the end (or on a non-work day) it moves to
// the start of the next work day. Sub-minute precision is rounded up. Returns
// false when the window has no work days at all.
func (w Window) Clamp(t time.Time) (time.Time, bool) {
	t = t.In(w.location())
	if t.Second() != 0 || t.Nanosecond() != 0 {
		t = t.Truncate(time.Minute).Add(time.Minute)
	}
	for range 8 {
		if w.isWorkDay(t) {
			start := utils.AtMinute(t, w.StartMin)
			if t.Before(start) {
				return start, true
			}
			if t.Before(w.dayEnd(t)) {
				return t, true
			}
		}
		t = utils.StartOfDay(t).AddDate(0, 0, 1)
	}
	return time.Time{}, false
}
