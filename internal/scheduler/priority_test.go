package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	assert.Equal(t, 0.40, w.Urgency)
	assert.Equal(t, 0.25, w.Importance)
	assert.Equal(t, 0.15, w.Difficulty)
	assert.Equal(t, 0.20, w.DueSoon)

	assert.Equal(t, w, Weights{}.orDefault())
	assert.Equal(t, w, Weights{Urgency: -1, Importance: 2}.orDefault())
	custom := Weights{Urgency: 1}
	assert.Equal(t, custom, custom.orDefault())
}

func TestUrgencyValue(t *testing.T) {
	assert.Equal(t, 0.25, UrgencyValue(constants.UrgencyLow))
	assert.Equal(t, 0.50, UrgencyValue(constants.UrgencyMedium))
	assert.Equal(t, 0.75, UrgencyValue(constants.UrgencyHigh))
	assert.Equal(t, 1.00, UrgencyValue(constants.UrgencyCritical))
	assert.Equal(t, 0.50, UrgencyValue(""))
}

func TestDueProximityIsMonotonic(t *testing.T) {
	now := on(0, 8, 0)
	assert.Equal(t, 1.0, DueProximity(now, now))
	assert.Equal(t, 1.0, DueProximity(now.Add(-72*time.Hour), now), "overdue clamps to zero days")
	assert.InDelta(t, 0.5, DueProximity(now.Add(24*time.Hour), now), 1e-9)

	prev := 0.0
	for h := 24 * 30; h >= 0; h -= 6 {
		v := DueProximity(now.Add(time.Duration(h)*time.Hour), now)
		assert.GreaterOrEqual(t, v, prev, "closer due dates never lower the score")
		prev = v
	}
}

func TestScoreEachCoefficient(t *testing.T) {
	now := on(0, 8, 0)
	far := on(90, 0, 0)
	base := models.Task{Urgency: constants.UrgencyLow}

	urgencyOnly := Weights{Urgency: 1}
	critical := base
	critical.Urgency = constants.UrgencyCritical
	assert.Greater(t, urgencyOnly.Score(critical, far, now), urgencyOnly.Score(base, far, now))

	importanceOnly := Weights{Importance: 1}
	important := base
	important.Importance = 0.9
	assert.InDelta(t, 0.9, importanceOnly.Score(important, far, now), 1e-9)

	difficultyOnly := Weights{Difficulty: 1}
	hard := base
	hard.Difficulty = 0.8
	assert.InDelta(t, 0.8, difficultyOnly.Score(hard, far, now), 1e-9)

	dueOnly := Weights{DueSoon: 1}
	assert.Greater(t, dueOnly.Score(base, on(1, 8, 0), now), dueOnly.Score(base, far, now))
}

func TestCompareSessions(t *testing.T) {
	due := on(2, 17, 0)
	tests := []struct {
		name string
		a, b models.PlannerSession
	}{
		{name: "higher priority first", a: models.PlannerSession{TaskID: "z", Priority: 0.9, Due: due}, b: models.PlannerSession{TaskID: "a", Priority: 0.1, Due: due}},
		{name: "earlier due next", a: models.PlannerSession{TaskID: "z", Priority: 0.5, Due: due}, b: models.PlannerSession{TaskID: "a", Priority: 0.5, Due: due.Add(time.Hour)}},
		{name: "higher importance next", a: models.PlannerSession{TaskID: "z", Priority: 0.5, Due: due, Importance: 0.8}, b: models.PlannerSession{TaskID: "a", Priority: 0.5, Due: due, Importance: 0.2}},
		{name: "task id next", a: models.PlannerSession{TaskID: "a", Priority: 0.5, Due: due}, b: models.PlannerSession{TaskID: "b", Priority: 0.5, Due: due}},
		{name: "session index last", a: models.PlannerSession{TaskID: "a", Priority: 0.5, Due: due, Index: 0}, b: models.PlannerSession{TaskID: "a", Priority: 0.5, Due: due, Index: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Negative(t, compareSessions(tt.a, tt.b))
			assert.Positive(t, compareSessions(tt.b, tt.a))
		})
	}
}

func TestWorkQueueOrder(t *testing.T) {
	due := on(2, 17, 0)
	q := newWorkQueue([]workItem{
		{session: models.PlannerSession{TaskID: "b", Priority: 0.3, Due: due}},
		{session: models.PlannerSession{TaskID: "a", Priority: 0.9, Due: due, Index: 1}},
		{session: models.PlannerSession{TaskID: "a", Priority: 0.9, Due: due, Index: 0}},
	})
	q.push(workItem{session: models.PlannerSession{TaskID: "c", Priority: 0.5, Due: due}})

	var order []string
	for q.Len() > 0 {
		it := q.pop()
		order = append(order, it.session.TaskID+string(rune('0'+it.session.Index)))
	}
	assert.Equal(t, []string{"a0", "a1", "c0", "b0"}, order)
}
