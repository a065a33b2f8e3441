package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/utils"
)

// Settings holds the user's study plan preferences. A copy is captured at the
// start of every pass so the repair loop never observes a half-applied edit.
type Settings struct {
	DayStart              string         `json:"day_start"` // HH:MM
	DayEnd                string         `json:"day_end"`   // HH:MM
	WorkDays              []time.Weekday `json:"work_days"`
	Timezone              string         `json:"timezone"` // IANA name or "Local"
	DefaultMinBlockMin    int            `json:"default_min_block_min"`
	DefaultMaxBlockMin    int            `json:"default_max_block_min"`
	PlanningHorizonDays   int            `json:"planning_horizon_days"`
	BreaksEnabled         bool           `json:"breaks_enabled"`
	ShortBreakMin         int            `json:"short_break_min"`
	LongBreakMin          int            `json:"long_break_min"`
	BreakCadence          int            `json:"break_cadence"` // sessions before a long break
	BreakCutoff           string         `json:"break_cutoff"`  // HH:MM, no breaks start after it
	AutoRescheduleEnabled bool           `json:"auto_reschedule_enabled"`
	PushMissedTasks       bool           `json:"push_missed_tasks"`
	MaxTasksToPush        int            `json:"max_tasks_to_push"`
	CheckIntervalMin      int            `json:"check_interval_min"`
}

// DefaultSettings returns the settings written by init
func DefaultSettings() Settings {
	days, _ := utils.ParseWorkDays(constants.DefaultWorkDays)
	return Settings{
		DayStart:              constants.DefaultWorkdayStart,
		DayEnd:                constants.DefaultWorkdayEnd,
		WorkDays:              days,
		Timezone:              constants.DefaultTimezone,
		DefaultMinBlockMin:    constants.DefaultMinBlockMin,
		DefaultMaxBlockMin:    constants.DefaultMaxBlockMin,
		PlanningHorizonDays:   constants.DefaultPlanningHorizonDays,
		BreaksEnabled:         constants.DefaultBreaksEnabled,
		ShortBreakMin:         constants.DefaultShortBreakMin,
		LongBreakMin:          constants.DefaultLongBreakMin,
		BreakCadence:          constants.DefaultBreakCadence,
		BreakCutoff:           constants.DefaultBreakCutoff,
		AutoRescheduleEnabled: constants.DefaultAutoRescheduleEnabled,
		PushMissedTasks:       constants.DefaultPushMissedTasks,
		MaxTasksToPush:        constants.DefaultMaxTasksToPush,
		CheckIntervalMin:      constants.DefaultCheckIntervalMin,
	}
}

// Validate checks settings before they are saved
func (s Settings) Validate() error {
	start, err := utils.ParseTimeToMinutes(s.DayStart)
	if err != nil {
		return fmt.Errorf("invalid day start %q: %w", s.DayStart, err)
	}
	end, err := utils.ParseTimeToMinutes(s.DayEnd)
	if err != nil {
		return fmt.Errorf("invalid day end %q: %w", s.DayEnd, err)
	}
	if end <= start {
		return fmt.Errorf("day end (%s) must be after day start (%s)", s.DayEnd, s.DayStart)
	}
	if len(s.WorkDays) == 0 {
		return fmt.Errorf("at least one work day is required")
	}
	if !utils.ValidateTimezone(s.Timezone) {
		return fmt.Errorf("invalid timezone %q", s.Timezone)
	}
	if s.BreakCutoff != "" && !utils.ValidateTimeFormat(s.BreakCutoff) {
		return fmt.Errorf("invalid break cutoff %q", s.BreakCutoff)
	}
	if s.DefaultMinBlockMin <= 0 || s.DefaultMaxBlockMin <= 0 {
		return fmt.Errorf("default block sizes must be positive")
	}
	if s.DefaultMinBlockMin > s.DefaultMaxBlockMin {
		return fmt.Errorf("default min block (%d) exceeds default max block (%d)", s.DefaultMinBlockMin, s.DefaultMaxBlockMin)
	}
	if s.ShortBreakMin < 0 || s.LongBreakMin < 0 || s.BreakCadence < 0 {
		return fmt.Errorf("break settings must not be negative")
	}
	if s.MaxTasksToPush < 0 {
		return fmt.Errorf("max tasks to push must not be negative")
	}
	if s.CheckIntervalMin < 1 {
		return fmt.Errorf("check interval must be at least 1 minute")
	}
	return nil
}

// Location resolves the configured timezone, falling back to local time
func (s Settings) Location() *time.Location {
	loc, err := utils.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CheckInterval is the repair loop period
func (s Settings) CheckInterval() time.Duration {
	if s.CheckIntervalMin < 1 {
		return time.Duration(constants.DefaultCheckIntervalMin) * time.Minute
	}
	return time.Duration(s.CheckIntervalMin) * time.Minute
}
