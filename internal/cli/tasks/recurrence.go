package tasks

import (
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

// RecurrenceFlags are shared by add and edit
type RecurrenceFlags struct {
	Repeat       string `short:"r" help:"Repeat frequency (daily|weekly|monthly|yearly)."`
	Interval     int    `help:"Repeat every N units." default:"1"`
	Until        string `help:"Last date an occurrence may fall on (YYYY-MM-DD)."`
	Count        int    `help:"Stop after N occurrences."`
	SkipWeekends bool   `help:"Move occurrences off Saturdays and Sundays."`
	SkipHolidays bool   `help:"Move occurrences off configured holidays."`
	Adjust       string `help:"Direction skipped occurrences move (forward|backward)." default:"forward" enum:"forward,backward"`
}

func (f RecurrenceFlags) Validate() error {
	if f.Repeat == "" {
		if f.Until != "" || f.Count != 0 || f.SkipWeekends || f.SkipHolidays {
			return fmt.Errorf("recurrence options need --repeat")
		}
		return nil
	}
	if _, err := models.ParseFrequency(f.Repeat); err != nil {
		return err
	}
	if f.Interval < 1 {
		return fmt.Errorf("--interval must be at least 1")
	}
	if f.Until != "" && f.Count != 0 {
		return fmt.Errorf("--until and --count are mutually exclusive")
	}
	if f.Count < 0 {
		return fmt.Errorf("--count must not be negative")
	}
	return nil
}

// Rule builds the recurrence rule, or nil when --repeat is not set
func (f RecurrenceFlags) Rule(loc *time.Location) (*models.RecurrenceRule, error) {
	if f.Repeat == "" {
		return nil, nil
	}
	freq, err := models.ParseFrequency(f.Repeat)
	if err != nil {
		return nil, err
	}
	end := models.RecurrenceEnd{Kind: constants.EndNever}
	switch {
	case f.Until != "":
		until, err := time.ParseInLocation(constants.DateFormat, f.Until, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid --until %q: expected %s", f.Until, constants.DateFormat)
		}
		end = models.RecurrenceEnd{Kind: constants.EndUntil, Until: until}
	case f.Count > 0:
		end = models.RecurrenceEnd{Kind: constants.EndAfterOccurrences, Count: f.Count}
	}
	rule := models.NewRule(freq, f.Interval, end, models.SkipPolicy{
		Weekends:   f.SkipWeekends,
		Holidays:   f.SkipHolidays,
		Adjustment: constants.Adjustment(f.Adjust),
	})
	return &rule, nil
}
