package constants

const (
	// Workday Settings
	SettingWorkdayStart = "workday_start"
	SettingWorkdayEnd   = "workday_end"
	SettingWorkDays     = "work_days"
	SettingTimezone     = "timezone"

	// Session Settings
	SettingDefaultMinBlockMin  = "default_min_block_min"
	SettingDefaultMaxBlockMin  = "default_max_block_min"
	SettingPlanningHorizonDays = "planning_horizon_days"

	// Break Settings
	SettingBreaksEnabled = "breaks_enabled"
	SettingShortBreakMin = "short_break_min"
	SettingLongBreakMin  = "long_break_min"
	SettingBreakCadence  = "break_cadence"
	SettingBreakCutoff   = "break_cutoff"

	// Repair Loop Settings
	SettingAutoRescheduleEnabled = "auto_reschedule_enabled"
	SettingPushMissedTasks       = "push_missed_tasks"
	SettingMaxTasksToPush        = "max_tasks_to_push"
	SettingCheckIntervalMin      = "check_interval_min"

	// Default Settings Values
	DefaultWorkdayStart          = "09:00"
	DefaultWorkdayEnd            = "17:00"
	DefaultWorkDays              = "mon,tue,wed,thu,fri,sat,sun"
	DefaultTimezone              = "Local" // Use system local timezone by default
	DefaultMinBlockMin           = 25
	DefaultMaxBlockMin           = 90
	DefaultPlanningHorizonDays   = 14
	DefaultBreaksEnabled         = true
	DefaultShortBreakMin         = 10
	DefaultLongBreakMin          = 30
	DefaultBreakCadence          = 3
	DefaultBreakCutoff           = "21:00"
	DefaultAutoRescheduleEnabled = true
	DefaultPushMissedTasks       = true
	DefaultMaxTasksToPush        = 5
	DefaultCheckIntervalMin      = 15
)
