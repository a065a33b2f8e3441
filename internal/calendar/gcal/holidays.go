package gcal

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	gapi "google.golang.org/api/calendar/v3"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/recurrence"
)

const cachedYears = 8

var _ recurrence.HolidaySource = (*HolidaySource)(nil)

// HolidaySource answers holiday lookups from a holiday calendar, e.g.
// en.usa#holiday@group.v.calendar.google.com. Each year is fetched once and
// kept in an LRU cache.
type HolidaySource struct {
	client     *Client
	calendarID string
	loc        *time.Location
	timeout    time.Duration
	years      *lru.Cache[int, recurrence.HolidaySet]
}

func NewHolidaySource(client *Client, calendarID string, loc *time.Location) (*HolidaySource, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("holiday calendar id is required")
	}
	if loc == nil {
		loc = time.Local
	}
	cache, err := lru.New[int, recurrence.HolidaySet](cachedYears)
	if err != nil {
		return nil, err
	}
	return &HolidaySource{
		client:     client,
		calendarID: calendarID,
		loc:        loc,
		timeout:    constants.DefaultOperationTimeout,
		years:      cache,
	}, nil
}

func (h *HolidaySource) IsHoliday(day time.Time) (bool, error) {
	day = day.In(h.loc)
	set, ok := h.years.Get(day.Year())
	if !ok {
		var err error
		if set, err = h.fetchYear(day.Year()); err != nil {
			return false, err
		}
		h.years.Add(day.Year(), set)
	}
	return set.IsHoliday(day)
}

func (h *HolidaySource) fetchYear(year int) (recurrence.HolidaySet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, h.loc)
	set := recurrence.HolidaySet{}
	err := h.client.list(ctx, h.calendarID, from, from.AddDate(1, 0, 0), func(item *gapi.Event) {
		if item.Status == "cancelled" || item.Start == nil || item.Start.Date == "" {
			return
		}
		if d, err := time.Parse(constants.DateFormat, item.Start.Date); err == nil {
			set[d.Format(constants.DateFormat)] = struct{}{}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays for %d: %w", year, err)
	}
	return set, nil
}
