package constants

import "time"

// Urgency is the user-facing urgency category of a task
type Urgency string

// Frequency is the unit a recurrence rule advances by
type Frequency string

// EndKind selects how a recurrence rule terminates
type EndKind string

// Adjustment is the direction a skipped occurrence is moved in
type Adjustment string

// IntervalKind classifies an occupied interval
type IntervalKind string

// BlockStatus is the lifecycle state of a scheduled block
type BlockStatus string

// OverflowReason explains why a session was not placed
type OverflowReason string

// BreakKind distinguishes short and long breaks
type BreakKind string

const (
	AppName            = "studyplan"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/studyplan"
	DefaultDBPath      = "~/.config/studyplan/studyplan.db"
	Version            = "v0.1.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// DateTimeFormat is used for due dates given on the command line
	DateTimeFormat = "2006-01-02 15:04"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "studyplan-"
	BackupFileSuffix = ".db"

	// Lockfile for the repair loop daemon
	WatchLockfileName = "studyplan-watch.lock"
	// Lockfile held for the length of one planning pass or repair tick
	PassLockfileName = "studyplan-pass.lock"

	// Scheduling bounds
	MaxLookaheadDays  = 120
	MaxSkipRetries    = 14
	MaxCandidates     = 5000
	RecurrenceMaxDays = 366

	// Urgency categories
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"

	// Recurrence frequencies
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"

	// Recurrence end conditions
	EndNever            EndKind = "never"
	EndUntil            EndKind = "until"
	EndAfterOccurrences EndKind = "after"

	// Skip adjustment directions
	AdjustForward  Adjustment = "forward"
	AdjustBackward Adjustment = "backward"

	// Occupied interval kinds
	IntervalLocked   IntervalKind = "locked"
	IntervalFlexible IntervalKind = "flexible"

	// Occupied interval sources
	SourceCalendar = "calendar"
	SourceBlock    = "block"

	// Block statuses
	BlockPlanned BlockStatus = "planned"
	BlockDone    BlockStatus = "done"
	BlockMissed  BlockStatus = "missed"

	// Overflow reasons
	OverflowNoSlot             OverflowReason = "no_slot"
	OverflowBumpBudgetExceeded OverflowReason = "bump_budget_exceeded"
	OverflowMissed             OverflowReason = "missed"

	// Break kinds
	BreakShort BreakKind = "short"
	BreakLong  BreakKind = "long"

	// Strategy names
	StrategyDeterministic = "deterministic"
	StrategyEnhanced      = "enhanced"

	// Calendar extended property keys
	CalendarPropLocked = "studyplan.locked"
	CalendarPropBlock  = "studyplan.block"

	// Repair loop
	DefaultOperationTimeout = 30 * time.Second
)
