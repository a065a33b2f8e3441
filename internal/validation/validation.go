package validation

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictOverlappingBlocks  ConflictType = "overlapping_blocks"
	ConflictLockedOverlap      ConflictType = "locked_overlap"
	ConflictOutsideWorkday     ConflictType = "outside_workday"
	ConflictPastDue            ConflictType = "past_due"
	ConflictMissingTask        ConflictType = "missing_task"
	ConflictMovedProtectedTask ConflictType = "moved_protected_task"
	ConflictDuplicateTask      ConflictType = "duplicate_task"
	ConflictInvalidTask        ConflictType = "invalid_task"
)

// Conflict represents a detected conflict in tasks or blocks
type Conflict struct {
	Type        ConflictType
	Description string
	TaskIDs     []string
	TimeRange   string // Human-readable time range (if applicable)
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// Count returns the number of conflicts of the given type
func (vr *ValidationResult) Count(t ConflictType) int {
	n := 0
	for _, c := range vr.Conflicts {
		if c.Type == t {
			n++
		}
	}
	return n
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

// Bounds is the work-hour window blocks must stay inside
type Bounds struct {
	StartMin int // minutes after midnight
	EndMin   int
	WorkDays []time.Weekday
	Location *time.Location
}

// BoundsFromSettings derives Bounds from the workday settings
func BoundsFromSettings(s models.Settings) (Bounds, error) {
	start, err := utils.ParseTimeToMinutes(s.DayStart)
	if err != nil {
		return Bounds{}, fmt.Errorf("invalid day start %q: %w", s.DayStart, err)
	}
	end, err := utils.ParseTimeToMinutes(s.DayEnd)
	if err != nil {
		return Bounds{}, fmt.Errorf("invalid day end %q: %w", s.DayEnd, err)
	}
	if end <= start {
		return Bounds{}, fmt.Errorf("day end (%s) must be after day start (%s)", s.DayEnd, s.DayStart)
	}
	return Bounds{StartMin: start, EndMin: end, WorkDays: s.WorkDays, Location: s.Location()}, nil
}

// Contains reports whether [start, end) lies inside one work day's window
func (b Bounds) Contains(start, end time.Time) bool {
	loc := b.Location
	if loc == nil {
		loc = time.Local
	}
	start, end = start.In(loc), end.In(loc)
	if len(b.WorkDays) > 0 && !slices.Contains(b.WorkDays, start.Weekday()) {
		return false
	}
	dayStart := utils.AtMinute(start, b.StartMin)
	dayEnd := utils.AtMinute(start, b.EndMin)
	return !start.Before(dayStart) && !end.After(dayEnd) && end.After(start)
}

// Validator validates tasks and schedules for conflicts
type Validator struct {
	bounds Bounds
}

func New(bounds Bounds) *Validator {
	return &Validator{bounds: bounds}
}

// ValidateTasks checks tasks for values the scheduler cannot use and for
// likely duplicates (same title and due date).
func (v *Validator) ValidateTasks(tasks []models.Task) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	seen := make(map[string][]string)
	for _, task := range tasks {
		if task.IsDeleted() {
			continue
		}
		if err := task.Validate(); err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidTask,
				Description: fmt.Sprintf("Task %q is invalid: %v", task.Title, err),
				TaskIDs:     []string{task.ID},
			})
		}
		key := strings.ToLower(strings.TrimSpace(task.Title))
		if task.Due != nil {
			key += "|" + task.Due.Format(constants.DateTimeFormat)
		}
		seen[key] = append(seen[key], task.ID)
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if ids := seen[k]; len(ids) > 1 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictDuplicateTask,
				Description: fmt.Sprintf("Duplicate task %q (IDs: %v)", strings.Split(k, "|")[0], ids),
				TaskIDs:     ids,
			})
		}
	}

	return result
}

// ValidateBlocks checks a block set against the schedule invariants: blocks
// of different tasks never overlap, no block overlaps a locked interval, every
// block sits inside the workday window and ends by its due time. Done blocks
// are history and only take part in the overlap checks.
func (v *Validator) ValidateBlocks(blocks []models.ScheduledBlock, occupied []models.OccupiedInterval, tasks []models.Task) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}

	sorted := slices.Clone(blocks)
	slices.SortFunc(sorted, func(a, b models.ScheduledBlock) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.TaskID, b.TaskID)
	})

	for i, a := range sorted {
		if tasks != nil && !known[a.TaskID] {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictMissingTask,
				Description: fmt.Sprintf("Block %s references unknown task %s", formatRange(a.Start, a.End), a.TaskID),
				TaskIDs:     []string{a.TaskID},
				TimeRange:   formatRange(a.Start, a.End),
			})
		}

		for _, b := range sorted[i+1:] {
			if !b.Start.Before(a.End) {
				break
			}
			if a.TaskID != b.TaskID {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictOverlappingBlocks,
					Description: fmt.Sprintf("Blocks of tasks %s and %s overlap (%s)", a.TaskID, b.TaskID, formatRange(b.Start, a.End)),
					TaskIDs:     []string{a.TaskID, b.TaskID},
					TimeRange:   formatRange(b.Start, a.End),
				})
			}
		}

		for _, iv := range occupied {
			if !iv.IsLocked() || iv.Key() == a.Key() {
				continue
			}
			if iv.Overlaps(a.Start, a.End) {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictLockedOverlap,
					Description: fmt.Sprintf("Block of task %s overlaps a locked interval (%s)", a.TaskID, formatRange(iv.Start, iv.End)),
					TaskIDs:     []string{a.TaskID},
					TimeRange:   formatRange(a.Start, a.End),
				})
			}
		}

		if a.Status == constants.BlockDone {
			continue
		}
		if !v.bounds.Contains(a.Start, a.End) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictOutsideWorkday,
				Description: fmt.Sprintf("Block of task %s is outside the workday (%s)", a.TaskID, formatRange(a.Start, a.End)),
				TaskIDs:     []string{a.TaskID},
				TimeRange:   formatRange(a.Start, a.End),
			})
		}
		if !a.Due.IsZero() && a.End.After(a.Due) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictPastDue,
				Description: fmt.Sprintf("Block of task %s ends after its due time %s", a.TaskID, a.Due.Format(constants.DateTimeFormat)),
				TaskIDs:     []string{a.TaskID},
				TimeRange:   formatRange(a.Start, a.End),
			})
		}
	}

	return result
}

// ValidateMoves checks that no block of a locked or edited task was moved
// between before and after.
func (v *Validator) ValidateMoves(before, after []models.ScheduledBlock, tasks []models.Task) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	protected := make(map[string]bool)
	for _, t := range tasks {
		if t.Locked || t.Edited {
			protected[t.ID] = true
		}
	}
	prior := make(map[models.SessionKey]models.ScheduledBlock, len(before))
	for _, b := range before {
		prior[b.Key()] = b
	}
	for _, b := range after {
		if !protected[b.TaskID] {
			continue
		}
		if p, ok := prior[b.Key()]; ok && (!p.Start.Equal(b.Start) || !p.End.Equal(b.End)) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictMovedProtectedTask,
				Description: fmt.Sprintf("Block of locked or edited task %s was moved from %s", b.TaskID, formatRange(p.Start, p.End)),
				TaskIDs:     []string{b.TaskID},
				TimeRange:   formatRange(b.Start, b.End),
			})
		}
	}
	return result
}

func formatRange(start, end time.Time) string {
	if utils.SameDay(start, end) {
		return fmt.Sprintf("%s %s-%s", start.Format(constants.DateFormat), start.Format(constants.TimeFormat), end.Format(constants.TimeFormat))
	}
	return fmt.Sprintf("%s - %s", start.Format(constants.DateTimeFormat), end.Format(constants.DateTimeFormat))
}
