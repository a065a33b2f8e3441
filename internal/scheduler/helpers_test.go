package scheduler

import (
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

// monday is 2025-03-10, a Monday
var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func on(day, h, m int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func nineToFive() Window {
	return Window{StartMin: 9 * 60, EndMin: 17 * 60, Location: time.UTC}
}

func testSettings() models.Settings {
	s := models.DefaultSettings()
	s.Timezone = "UTC"
	s.DayStart = "09:00"
	s.DayEnd = "17:00"
	s.BreaksEnabled = false
	return s
}

func locked(start, end time.Time) models.OccupiedInterval {
	return models.OccupiedInterval{Start: start, End: end, Kind: constants.IntervalLocked, Source: constants.SourceCalendar}
}

func flexible(task string, idx int, start, end time.Time) models.OccupiedInterval {
	return models.OccupiedInterval{
		Start:        start,
		End:          end,
		Kind:         constants.IntervalFlexible,
		TaskID:       task,
		SessionIndex: idx,
		Source:       constants.SourceBlock,
	}
}

func task(id string, minutes int, due time.Time, urgency constants.Urgency) models.Task {
	return models.Task{
		ID:           id,
		Title:        id,
		Due:          &due,
		EstimatedMin: minutes,
		Importance:   0.5,
		Difficulty:   0.5,
		Urgency:      urgency,
	}
}

func blockFor(res Result, key models.SessionKey) (models.ScheduledBlock, bool) {
	for _, b := range res.Placed {
		if b.Key() == key {
			return b, true
		}
	}
	return models.ScheduledBlock{}, false
}

func key(taskID string, occ, idx int) models.SessionKey {
	return models.SessionKey{TaskID: taskID, Occurrence: occ, Index: idx}
}
