// Package recurrence expands recurrence rules into bounded, lazily produced
// sequences of occurrence dates.
package recurrence

import (
	"iter"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/models"
)

// Expander turns rules into occurrence dates. The zero value is usable and
// never treats a day as a holiday.
type Expander struct {
	holidays HolidaySource
}

func NewExpander(holidays HolidaySource) *Expander {
	if holidays == nil {
		holidays = NoHolidays{}
	}
	return &Expander{holidays: holidays}
}

// Expand yields the occurrences of rule starting at seed (occurrence 0) in
// strictly increasing order. horizonEnd bounds the sequence when non-zero.
// Every range over the result restarts from seed.
func (e *Expander) Expand(rule models.RecurrenceRule, seed, horizonEnd time.Time) iter.Seq[time.Time] {
	rule.Normalize()

	return func(yield func(time.Time) bool) {
		s := e.newSkipper(rule.Skip)

		limit := horizonEnd
		if limit.IsZero() && rule.End.Kind == constants.EndNever {
			limit = seed.AddDate(0, 0, constants.RecurrenceMaxDays)
		}

		var prev time.Time
		yielded := 0
		for k := range constants.MaxCandidates {
			raw := nthCandidate(rule, seed, k)
			if rule.End.Kind == constants.EndUntil && dateAfter(raw, rule.End.Until) {
				return
			}
			if !limit.IsZero() && raw.After(limit) {
				return
			}

			day, ok := s.adjust(raw)
			if !ok {
				continue
			}
			if rule.End.Kind == constants.EndUntil && dateAfter(day, rule.End.Until) {
				continue
			}
			if !limit.IsZero() && day.After(limit) {
				continue
			}
			if yielded > 0 && !day.After(prev) {
				continue
			}

			if !yield(day) {
				return
			}
			prev = day
			yielded++
			if rule.End.Kind == constants.EndAfterOccurrences && yielded >= rule.End.Count {
				return
			}
		}
	}
}

// Occurrences collects Expand into a slice.
func (e *Expander) Occurrences(rule models.RecurrenceRule, seed, horizonEnd time.Time) []time.Time {
	var out []time.Time
	for d := range e.Expand(rule, seed, horizonEnd) {
		out = append(out, d)
	}
	return out
}

// nthCandidate computes candidate k from the seed rather than from candidate
// k-1, so a clamped month end does not drift the following months.
func nthCandidate(rule models.RecurrenceRule, seed time.Time, k int) time.Time {
	n := k * rule.Interval
	switch rule.Frequency {
	case constants.FrequencyDaily:
		return seed.AddDate(0, 0, n)
	case constants.FrequencyWeekly:
		return seed.AddDate(0, 0, 7*n)
	case constants.FrequencyMonthly:
		return addMonthsClamped(seed, n)
	case constants.FrequencyYearly:
		return addMonthsClamped(seed, 12*n)
	default:
		return seed.AddDate(0, 0, 7*n)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dateAfter compares calendar dates, ignoring the time of day.
func dateAfter(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad > bd
}

// skipper applies a skip policy for one expansion
type skipper struct {
	policy   models.SkipPolicy
	holidays HolidaySource
	degraded bool
}

func (e *Expander) newSkipper(policy models.SkipPolicy) *skipper {
	src := e.holidays
	if src == nil {
		src = NoHolidays{}
	}
	return &skipper{policy: policy, holidays: src}
}

func (s *skipper) skipped(day time.Time) bool {
	if s.policy.Weekends {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return true
		}
	}
	if s.policy.Holidays && !s.degraded {
		holiday, err := s.holidays.IsHoliday(day)
		if err != nil {
			s.degraded = true
			logger.Warn("holiday source unavailable, not skipping holidays", "error", err)
			return false
		}
		return holiday
	}
	return false
}

// adjust moves day off skipped dates one day at a time. It gives up after
// MaxSkipRetries moves.
func (s *skipper) adjust(day time.Time) (time.Time, bool) {
	step := 1
	if s.policy.Adjustment == constants.AdjustBackward {
		step = -1
	}
	for range constants.MaxSkipRetries + 1 {
		if !s.skipped(day) {
			return day, true
		}
		day = day.AddDate(0, 0, step)
	}
	return time.Time{}, false
}
