package scheduler

import (
	"cmp"
	"math"
	"strings"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

// Weights are the coefficients of the priority score. They are configurable;
// the score is their weighted sum over inputs in [0,1].
type Weights struct {
	Urgency    float64
	Importance float64
	Difficulty float64
	DueSoon    float64
}

func DefaultWeights() Weights {
	return Weights{
		Urgency:    constants.DefaultWeightUrgency,
		Importance: constants.DefaultWeightImportance,
		Difficulty: constants.DefaultWeightDifficulty,
		DueSoon:    constants.DefaultWeightDueSoon,
	}
}

// Sum of all coefficients
func (w Weights) Sum() float64 {
	return w.Urgency + w.Importance + w.Difficulty + w.DueSoon
}

// orDefault replaces an all-zero or negative weight set with the defaults
func (w Weights) orDefault() Weights {
	if w.Sum() <= 0 || w.Urgency < 0 || w.Importance < 0 || w.Difficulty < 0 || w.DueSoon < 0 {
		return DefaultWeights()
	}
	return w
}

// UrgencyValue maps an urgency category onto [0,1]
func UrgencyValue(u constants.Urgency) float64 {
	switch u {
	case constants.UrgencyLow:
		return constants.UrgencyValueLow
	case constants.UrgencyHigh:
		return constants.UrgencyValueHigh
	case constants.UrgencyCritical:
		return constants.UrgencyValueCritical
	default:
		return constants.UrgencyValueMedium
	}
}

// DueProximity is 1/(1+days until due). Overdue counts as zero days, so the
// value never decreases as the due date approaches.
func DueProximity(due, now time.Time) float64 {
	days := math.Max(0, due.Sub(now).Hours()/24)
	return 1 / (1 + days)
}

// Score computes the priority of work on task due at due
func (w Weights) Score(task models.Task, due, now time.Time) float64 {
	return w.Urgency*UrgencyValue(task.Urgency) +
		w.Importance*task.Importance +
		w.Difficulty*task.Difficulty +
		w.DueSoon*DueProximity(due, now)
}

// compareSessions orders the work list: higher priority first, then earlier
// due, then higher importance, then task ID, occurrence and session index.
func compareSessions(a, b models.PlannerSession) int {
	if a.Priority != b.Priority {
		if a.Priority > b.Priority {
			return -1
		}
		return 1
	}
	if c := a.Due.Compare(b.Due); c != 0 {
		return c
	}
	if a.Importance != b.Importance {
		if a.Importance > b.Importance {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.TaskID, b.TaskID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Occurrence, b.Occurrence); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}
