package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
)

type Task struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Due          *time.Time        `json:"due,omitempty"` // nil means never auto-scheduled
	EstimatedMin int               `json:"estimated_min"`
	MinBlockMin  int               `json:"min_block_min,omitempty"` // 0 falls back to settings
	MaxBlockMin  int               `json:"max_block_min,omitempty"` // 0 falls back to settings
	Difficulty   float64           `json:"difficulty"`
	Importance   float64           `json:"importance"`
	Urgency      constants.Urgency `json:"urgency"`
	Completed    bool              `json:"completed"`
	Locked       bool              `json:"locked"`
	Edited       bool              `json:"edited"` // set by manual edits, suppresses auto-scheduling
	Recurrence   *RecurrenceRule   `json:"recurrence,omitempty"`
	CourseID     string            `json:"course_id,omitempty"`
	NotBefore    *time.Time        `json:"not_before,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	ScheduledAt  *time.Time        `json:"scheduled_at,omitempty"`
	DeletedAt    *string           `json:"deleted_at,omitempty"` // RFC3339 timestamp
}

// IsDeleted reports whether the task has been soft deleted
func (t Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

// IsRecurring reports whether the task carries a recurrence rule
func (t Task) IsRecurring() bool {
	return t.Recurrence != nil
}

// Normalize clamps scores into [0,1], fills a missing urgency and normalizes
// the recurrence rule.
func (t *Task) Normalize() {
	t.Difficulty = clamp01(t.Difficulty)
	t.Importance = clamp01(t.Importance)
	if t.Urgency == "" {
		t.Urgency = constants.UrgencyMedium
	}
	if t.Recurrence != nil {
		t.Recurrence.Normalize()
	}
}

// Validate checks the fields a user can get wrong on the command line
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title is required")
	}
	if t.EstimatedMin <= 0 {
		return fmt.Errorf("estimated minutes must be positive, got %d", t.EstimatedMin)
	}
	if t.MinBlockMin < 0 || t.MaxBlockMin < 0 {
		return fmt.Errorf("block sizes must not be negative")
	}
	if t.MinBlockMin > 0 && t.MaxBlockMin > 0 && t.MinBlockMin > t.MaxBlockMin {
		return fmt.Errorf("min block (%d) exceeds max block (%d)", t.MinBlockMin, t.MaxBlockMin)
	}
	if _, err := ParseUrgency(string(t.Urgency)); err != nil {
		return err
	}
	if t.Recurrence != nil && t.Due == nil {
		return fmt.Errorf("recurring tasks need a due date to seed the recurrence")
	}
	return nil
}

// ParseUrgency parses an urgency category. The empty string maps to medium.
func ParseUrgency(s string) (constants.Urgency, error) {
	switch u := constants.Urgency(strings.ToLower(strings.TrimSpace(s))); u {
	case constants.UrgencyLow, constants.UrgencyMedium, constants.UrgencyHigh, constants.UrgencyCritical:
		return u, nil
	case "":
		return constants.UrgencyMedium, nil
	default:
		return "", fmt.Errorf("invalid urgency %q (expected low, medium, high or critical)", s)
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
