package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/studyplan/internal/calendar"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

type brokenSource struct{}

func (brokenSource) Events(context.Context, time.Time, time.Time) ([]calendar.Event, error) {
	return nil, errors.New("calendar offline")
}

func TestLoadSnapshot(t *testing.T) {
	store := setupStore(t)
	addTask(t, store, "essay", 60, on(1, 17, 0))
	events := calendar.Static{
		{ID: "soon", Start: on(0, 10, 0), End: on(0, 11, 0), Locked: true},
		{ID: "later", Start: on(200, 10, 0), End: on(200, 11, 0), Locked: true},
	}

	snap, err := LoadSnapshot(context.Background(), store, events, on(0, 8, 0), 30)
	require.NoError(t, err)
	assert.Equal(t, "UTC", snap.Settings.Timezone)
	assert.Len(t, snap.Tasks, 1)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "soon", snap.Events[0].ID)
	assert.False(t, snap.Energy.IsZero())

	_, err = LoadSnapshot(context.Background(), store, brokenSource{}, on(0, 8, 0), 30)
	assert.ErrorContains(t, err, "calendar")
}

func TestSnapshotOccupied(t *testing.T) {
	snap := Snapshot{
		Events: []calendar.Event{{ID: "lecture", Start: on(0, 9, 0), End: on(0, 10, 0), Locked: true}},
		Blocks: []models.ScheduledBlock{
			{TaskID: "a", Start: on(0, 10, 0), End: on(0, 11, 0), Status: constants.BlockPlanned},
			{TaskID: "b", Start: on(0, 11, 0), End: on(0, 12, 0), Status: constants.BlockDone},
		},
		Overflow: []models.Overflow{{Session: models.PlannerSession{TaskID: "a"}}},
	}

	occ := snap.Occupied()
	require.Len(t, occ, 3)
	assert.Equal(t, constants.SourceCalendar, occ[0].Source)
	assert.False(t, occ[1].IsLocked())
	assert.True(t, occ[2].IsLocked())
	assert.Len(t, snap.LockedIntervals(), 2)

	assert.Len(t, snap.TaskBlocks("a"), 1)
	assert.Len(t, snap.TaskOverflow("a"), 1)
	assert.Empty(t, snap.TaskOverflow("b"))
	_, ok := snap.Task("a")
	assert.False(t, ok)
}
