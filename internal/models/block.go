package models

import (
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
)

// SessionKey identifies one session of one occurrence of a task. It is the
// identity of a ScheduledBlock.
type SessionKey struct {
	TaskID     string `json:"task_id"`
	Occurrence int    `json:"occurrence"`
	Index      int    `json:"session_index"`
}

// PlannerSession is one contiguous unit of work toward a task. Recomputed on
// every pass, never persisted.
type PlannerSession struct {
	TaskID        string            `json:"task_id"`
	Occurrence    int               `json:"occurrence"`
	Index         int               `json:"index"`
	Count         int               `json:"count"`
	Minutes       int               `json:"minutes"`
	Priority      float64           `json:"priority"`
	Urgency       constants.Urgency `json:"urgency"`
	Difficulty    float64           `json:"difficulty"`
	Importance    float64           `json:"importance"`
	Due           time.Time         `json:"due"`
	EarliestStart time.Time         `json:"earliest_start"`
	Locked        bool              `json:"locked"`
}

func (s PlannerSession) Key() SessionKey {
	return SessionKey{TaskID: s.TaskID, Occurrence: s.Occurrence, Index: s.Index}
}

func (s PlannerSession) Duration() time.Duration {
	return time.Duration(s.Minutes) * time.Minute
}

// ScheduledBlock is a placed session
type ScheduledBlock struct {
	TaskID          string                `json:"task_id"`
	Occurrence      int                   `json:"occurrence"`
	SessionIndex    int                   `json:"session_index"`
	Start           time.Time             `json:"start"`
	End             time.Time             `json:"end"`
	Due             time.Time             `json:"due"` // deadline of the occurrence the block serves
	Status          constants.BlockStatus `json:"status"`
	CalendarEventID string                `json:"calendar_event_id,omitempty"`
}

func (b ScheduledBlock) Key() SessionKey {
	return SessionKey{TaskID: b.TaskID, Occurrence: b.Occurrence, Index: b.SessionIndex}
}

func (b ScheduledBlock) Minutes() int {
	return int(b.End.Sub(b.Start) / time.Minute)
}

// Overlaps reports whether b and the half-open range [start, end) intersect
func (b ScheduledBlock) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End)
}

// OccupiedInterval is a half-open time range the placer must respect.
// Flexible intervals carry the owning session so they can be bumped.
type OccupiedInterval struct {
	Start        time.Time              `json:"start"`
	End          time.Time              `json:"end"`
	Kind         constants.IntervalKind `json:"kind"`
	TaskID       string                 `json:"task_id,omitempty"`
	Occurrence   int                    `json:"occurrence,omitempty"`
	SessionIndex int                    `json:"session_index,omitempty"`
	Priority     float64                `json:"priority,omitempty"`
	Source       string                 `json:"source,omitempty"`
	// Padding is break time kept free after End. It only holds off
	// placements the interval itself would block.
	Padding time.Duration `json:"padding,omitempty"`
}

func (o OccupiedInterval) Key() SessionKey {
	return SessionKey{TaskID: o.TaskID, Occurrence: o.Occurrence, Index: o.SessionIndex}
}

func (o OccupiedInterval) IsLocked() bool {
	return o.Kind == constants.IntervalLocked
}

// Overlaps reports whether o and the half-open range [start, end) intersect
func (o OccupiedInterval) Overlaps(start, end time.Time) bool {
	return o.Start.Before(end) && start.Before(o.End)
}

// BlockInterval converts a persisted block into an occupied interval
func BlockInterval(b ScheduledBlock, kind constants.IntervalKind) OccupiedInterval {
	return OccupiedInterval{
		Start:        b.Start,
		End:          b.End,
		Kind:         kind,
		TaskID:       b.TaskID,
		Occurrence:   b.Occurrence,
		SessionIndex: b.SessionIndex,
		Source:       constants.SourceBlock,
	}
}

// Overflow is a session that could not be placed before its deadline
type Overflow struct {
	Session    PlannerSession           `json:"session"`
	Reason     constants.OverflowReason `json:"reason"`
	RecordedAt time.Time                `json:"recorded_at"`
}

// Break is derived after placement and never persisted
type Break struct {
	Start time.Time           `json:"start"`
	End   time.Time           `json:"end"`
	Kind  constants.BreakKind `json:"kind"`
}

// ScheduleUpdate is the write set of one full planning pass. It is applied
// atomically: Upsert and Delete touch only non-done blocks, and Overflow
// replaces the stored overflow list. Entries recorded as missed by the
// repair loop are kept unless their session is placed again.
type ScheduleUpdate struct {
	Upsert   []ScheduledBlock
	Delete   []SessionKey
	Overflow []Overflow
	// Base is the stored schedule the update was computed from. With
	// CheckBase set the update is refused when the stored blocks no longer
	// match it.
	Base      []ScheduledBlock
	CheckBase bool
}
