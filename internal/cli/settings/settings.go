package settings

import (
	"fmt"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	DayStart      *string `help:"Start of the study day (HH:MM)."`
	DayEnd        *string `help:"End of the study day (HH:MM)."`
	WorkDays      *string `help:"Comma-separated study days, e.g. mon,tue,thu."`
	Timezone      *string `help:"IANA timezone, or Local."`
	MinBlock      *int    `help:"Default minimum session length in minutes."`
	MaxBlock      *int    `help:"Default maximum session length in minutes."`
	HorizonDays   *int    `help:"Days ahead recurring tasks are expanded."`
	Breaks        *bool   `help:"Insert breaks between sessions."`
	ShortBreak    *int    `help:"Short break length in minutes."`
	LongBreak     *int    `help:"Long break length in minutes."`
	BreakCadence  *int    `help:"Sessions before a long break."`
	BreakCutoff   *string `help:"No breaks start after this time (HH:MM)."`
	AutoResched   *bool   `name:"auto-reschedule" help:"Run the repair loop in 'studyplan watch'."`
	PushMissed    *bool   `help:"Move missed tasks to new slots."`
	MaxTasksPush  *int    `name:"max-tasks-to-push" help:"Missed tasks moved per repair tick."`
	CheckInterval *int    `help:"Minutes between repair ticks."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List {
		printSettings(settings)
		return nil
	}

	updated, err := c.apply(&settings)
	if err != nil {
		return err
	}
	if !updated {
		fmt.Println("No changes specified. Use --list to view settings or flags to update them.")
		return nil
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Println("Settings updated successfully.")
	fmt.Println("  Run 'studyplan plan' to reschedule with the new settings.")
	return nil
}

func (c *SettingsCmd) apply(s *models.Settings) (bool, error) {
	updated := false
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
			updated = true
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
			updated = true
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
			updated = true
		}
	}

	setString(&s.DayStart, c.DayStart)
	setString(&s.DayEnd, c.DayEnd)
	setString(&s.Timezone, c.Timezone)
	setString(&s.BreakCutoff, c.BreakCutoff)
	setInt(&s.DefaultMinBlockMin, c.MinBlock)
	setInt(&s.DefaultMaxBlockMin, c.MaxBlock)
	setInt(&s.PlanningHorizonDays, c.HorizonDays)
	setInt(&s.ShortBreakMin, c.ShortBreak)
	setInt(&s.LongBreakMin, c.LongBreak)
	setInt(&s.BreakCadence, c.BreakCadence)
	setInt(&s.MaxTasksToPush, c.MaxTasksPush)
	setInt(&s.CheckIntervalMin, c.CheckInterval)
	setBool(&s.BreaksEnabled, c.Breaks)
	setBool(&s.AutoRescheduleEnabled, c.AutoResched)
	setBool(&s.PushMissedTasks, c.PushMissed)

	if c.WorkDays != nil {
		days, err := utils.ParseWorkDays(*c.WorkDays)
		if err != nil {
			return false, err
		}
		s.WorkDays = days
		updated = true
	}
	return updated, nil
}

func printSettings(s models.Settings) {
	fmt.Println("Current Settings:")
	fmt.Printf("  Study Day:             %s - %s\n", s.DayStart, s.DayEnd)
	fmt.Printf("  Work Days:             %s\n", utils.FormatWorkDays(s.WorkDays))
	fmt.Printf("  Timezone:              %s\n", s.Timezone)
	fmt.Printf("  Session Length:        %d-%d min\n", s.DefaultMinBlockMin, s.DefaultMaxBlockMin)
	fmt.Printf("  Planning Horizon:      %d days\n", s.PlanningHorizonDays)
	fmt.Println("\nBreaks:")
	fmt.Printf("  Enabled:               %v\n", s.BreaksEnabled)
	fmt.Printf("  Short / Long:          %d / %d min\n", s.ShortBreakMin, s.LongBreakMin)
	fmt.Printf("  Long Break Every:      %d sessions\n", s.BreakCadence)
	fmt.Printf("  Cutoff:                %s\n", s.BreakCutoff)
	fmt.Println("\nRepair Loop:")
	fmt.Printf("  Auto-Reschedule:       %v\n", s.AutoRescheduleEnabled)
	fmt.Printf("  Push Missed Tasks:     %v\n", s.PushMissedTasks)
	fmt.Printf("  Max Tasks Per Tick:    %d\n", s.MaxTasksToPush)
	fmt.Printf("  Check Interval:        %d min\n", s.CheckIntervalMin)
}
