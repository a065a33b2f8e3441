package scheduler

import (
	"time"

	"github.com/julianstephens/studyplan/internal/models"
)

// Occurrence is one dated instance of a task. Non-recurring tasks have a
// single occurrence with index 0.
type Occurrence struct {
	Index         int
	Due           time.Time
	EarliestStart time.Time
}

// Decomposer splits tasks into planner sessions
type Decomposer struct {
	weights    Weights
	defaultMin int
	defaultMax int
}

func NewDecomposer(weights Weights, settings models.Settings) *Decomposer {
	return &Decomposer{
		weights:    weights.orDefault(),
		defaultMin: settings.DefaultMinBlockMin,
		defaultMax: settings.DefaultMaxBlockMin,
	}
}

// Decompose splits a non-recurring task. Undated tasks and tasks without an
// estimate yield no sessions.
func (d *Decomposer) Decompose(task models.Task, now time.Time) []models.PlannerSession {
	if task.Due == nil {
		return nil
	}
	return d.DecomposeOccurrence(task, Occurrence{Due: *task.Due}, now)
}

// DecomposeOccurrence splits one occurrence of task into ordered sessions.
func (d *Decomposer) DecomposeOccurrence(task models.Task, occ Occurrence, now time.Time) []models.PlannerSession {
	minutes := Split(task.EstimatedMin, d.blockMin(task), d.blockMax(task))
	if len(minutes) == 0 {
		return nil
	}

	earliest := occ.EarliestStart
	if task.NotBefore != nil && task.NotBefore.After(earliest) {
		earliest = *task.NotBefore
	}

	priority := d.weights.Score(task, occ.Due, now)
	sessions := make([]models.PlannerSession, len(minutes))
	for i, m := range minutes {
		sessions[i] = models.PlannerSession{
			TaskID:        task.ID,
			Occurrence:    occ.Index,
			Index:         i,
			Count:         len(minutes),
			Minutes:       m,
			Priority:      priority,
			Urgency:       task.Urgency,
			Difficulty:    task.Difficulty,
			Importance:    task.Importance,
			Due:           occ.Due,
			EarliestStart: earliest,
			Locked:        task.Locked,
		}
	}
	return sessions
}

func (d *Decomposer) blockMin(task models.Task) int {
	if task.MinBlockMin > 0 {
		return task.MinBlockMin
	}
	return d.defaultMin
}

func (d *Decomposer) blockMax(task models.Task) int {
	if task.MaxBlockMin > 0 {
		return task.MaxBlockMin
	}
	return d.defaultMax
}

// Split divides total minutes into the fewest sessions whose lengths lie in
// [minBlock, maxBlock], giving remainder minutes to the first sessions. When
// no count satisfies both bounds the minimum wins: sessions may exceed
// maxBlock but never fall below minBlock.
func Split(total, minBlock, maxBlock int) []int {
	if total <= 0 {
		return nil
	}
	if maxBlock <= 0 {
		maxBlock = total
	}
	if minBlock <= 0 {
		minBlock = 1
	}
	if minBlock > maxBlock {
		minBlock = maxBlock
	}
	if total <= maxBlock {
		return []int{total}
	}

	n := (total + maxBlock - 1) / maxBlock
	if total/n < minBlock {
		n = total / minBlock
	}

	base, rem := total/n, total%n
	out := make([]int, n)
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}
