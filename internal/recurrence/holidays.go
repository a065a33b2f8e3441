package recurrence

import (
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
)

// HolidaySource answers whether a calendar day is a holiday. Implementations
// may fail; the expander then stops skipping holidays for that expansion.
type HolidaySource interface {
	IsHoliday(day time.Time) (bool, error)
}

// NoHolidays is the default source: no day is a holiday.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(time.Time) (bool, error) { return false, nil }

// HolidaySet is a fixed set of dates, usually loaded from the config file.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from calendar dates. Only the date part is kept.
func NewHolidaySet(days ...time.Time) HolidaySet {
	set := make(HolidaySet, len(days))
	for _, d := range days {
		set[d.Format(constants.DateFormat)] = struct{}{}
	}
	return set
}

// ParseHolidaySet builds a set from YYYY-MM-DD strings.
func ParseHolidaySet(dates []string) (HolidaySet, error) {
	set := make(HolidaySet, len(dates))
	for _, s := range dates {
		d, err := time.Parse(constants.DateFormat, s)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", s, err)
		}
		set[d.Format(constants.DateFormat)] = struct{}{}
	}
	return set, nil
}

func (h HolidaySet) IsHoliday(day time.Time) (bool, error) {
	_, ok := h[day.Format(constants.DateFormat)]
	return ok, nil
}

// AnyHoliday reports a holiday when any of its sources does. The first
// source error is returned.
type AnyHoliday []HolidaySource

func (a AnyHoliday) IsHoliday(day time.Time) (bool, error) {
	for _, src := range a {
		if src == nil {
			continue
		}
		ok, err := src.IsHoliday(day)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
