package scheduler

import (
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

// insertBreaks sweeps blocks (sorted by start) and places a break in each gap
// between consecutive same-day sessions that is long enough and starts before
// the cutoff. Every cadence-th session in a day earns a long break when the
// gap fits one.
func insertBreaks(blocks []models.ScheduledBlock, s models.Settings, w Window) []models.Break {
	if !s.BreaksEnabled || s.ShortBreakMin <= 0 {
		return nil
	}

	cutoff := w.EndMin
	if s.BreakCutoff != "" {
		if m, err := utils.ParseTimeToMinutes(s.BreakCutoff); err == nil {
			cutoff = m
		}
	}
	short := time.Duration(s.ShortBreakMin) * time.Minute
	long := time.Duration(s.LongBreakMin) * time.Minute

	var breaks []models.Break
	run := 0
	for i, prev := range blocks {
		if i > 0 && !utils.SameDay(blocks[i-1].Start, prev.Start) {
			run = 0
		}
		run++
		if i == len(blocks)-1 {
			break
		}

		next := blocks[i+1]
		if !utils.SameDay(prev.End, next.Start) {
			continue
		}
		if utils.MinuteOfDay(prev.End.In(w.location())) >= cutoff {
			continue
		}
		gap := next.Start.Sub(prev.End)
		if gap < short {
			continue
		}

		if s.BreakCadence > 0 && run >= s.BreakCadence && long > 0 && gap >= long {
			breaks = append(breaks, models.Break{Start: prev.End, End: prev.End.Add(long), Kind: constants.BreakLong})
			run = 0
			continue
		}
		breaks = append(breaks, models.Break{Start: prev.End, End: prev.End.Add(short), Kind: constants.BreakShort})
	}
	return breaks
}
