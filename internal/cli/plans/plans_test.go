package plans

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/config"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/lockfile"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/planner"
	"github.com/julianstephens/studyplan/internal/scheduler"
	"github.com/julianstephens/studyplan/internal/storage/sqlite"
)

// now is Monday 2025-03-10 08:00 UTC
var now = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func setupContext(t *testing.T) *cli.Context {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studyplan.db")
	store := sqlite.NewStore(path)
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	settings := models.DefaultSettings()
	settings.Timezone = "UTC"
	settings.BreaksEnabled = false
	require.NoError(t, store.SaveSettings(settings))

	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: path},
		Scheduler: config.SchedulerConfig{
			Weights:       scheduler.DefaultWeights(),
			BumpBudget:    constants.DefaultBumpBudget,
			LookaheadDays: 30,
		},
	}
	ctx := cli.New(store, cfg)
	ctx.Now = func() time.Time { return now }
	require.NoError(t, ctx.Wire(context.Background()))
	return ctx
}

func addTask(t *testing.T, ctx *cli.Context, id string, minutes int, due time.Time) {
	t.Helper()
	require.NoError(t, ctx.Store.AddTask(models.Task{
		ID: id, Title: "task " + id, Due: &due, EstimatedMin: minutes,
		Importance: 0.5, Difficulty: 0.5, Urgency: constants.UrgencyMedium,
	}))
}

func totalMinutes(blocks []models.ScheduledBlock) int {
	n := 0
	for _, b := range blocks {
		n += b.Minutes()
	}
	return n
}

func confirmWith(t *testing.T, answer bool) *int {
	t.Helper()
	calls := 0
	orig := cli.Confirm
	cli.Confirm = func(string, string) (bool, error) {
		calls++
		return answer, nil
	}
	t.Cleanup(func() { cli.Confirm = orig })
	return &calls
}

func TestPlanApplies(t *testing.T) {
	ctx := setupContext(t)
	addTask(t, ctx, "essay", 120, now.Add(48*time.Hour))
	calls := confirmWith(t, true)

	require.NoError(t, (&PlanCmd{}).Run(ctx))
	assert.Equal(t, 1, *calls)

	blocks, err := ctx.Store.GetAllBlocks()
	require.NoError(t, err)
	assert.Equal(t, 120, totalMinutes(blocks))
	for _, b := range blocks {
		assert.False(t, b.Start.Before(now))
	}

	backups, err := ctx.Backups().List()
	require.NoError(t, err)
	assert.NotEmpty(t, backups, "an applied pass backs up first")
}

func TestPlanDeclinedAndDryRunWriteNothing(t *testing.T) {
	ctx := setupContext(t)
	addTask(t, ctx, "essay", 60, now.Add(48*time.Hour))

	confirmWith(t, false)
	require.NoError(t, (&PlanCmd{}).Run(ctx))
	require.NoError(t, (&PlanCmd{DryRun: true}).Run(ctx))

	blocks, err := ctx.Store.GetAllBlocks()
	require.NoError(t, err)
	assert.Empty(t, blocks)

	assert.Error(t, (&PlanCmd{Yes: true, DryRun: true}).Validate())
}

func TestPlanYesSkipsConfirm(t *testing.T) {
	ctx := setupContext(t)
	addTask(t, ctx, "essay", 60, now.Add(48*time.Hour))
	calls := confirmWith(t, false)

	require.NoError(t, (&PlanCmd{Yes: true}).Run(ctx))
	assert.Zero(t, *calls)

	blocks, err := ctx.Store.GetAllBlocks()
	require.NoError(t, err)
	assert.Len(t, blocks, 1)

	assert.NoError(t, (&ShowCmd{Days: 7}).Run(ctx))
	assert.NoError(t, (&OverflowCmd{}).Run(ctx))
}

func TestPlanRefusesStaleProposal(t *testing.T) {
	ctx := setupContext(t)
	addTask(t, ctx, "essay", 60, now.Add(48*time.Hour))
	addTask(t, ctx, "lab", 60, now.Add(48*time.Hour))

	orig := cli.Confirm
	t.Cleanup(func() { cli.Confirm = orig })
	cli.Confirm = func(string, string) (bool, error) {
		// a repair in another process lands while the prompt is open
		start := now.Add(2 * time.Hour)
		return true, ctx.Store.ReplaceTaskBlocks("lab", []models.ScheduledBlock{
			{TaskID: "lab", Start: start, End: start.Add(time.Hour), Due: now.Add(48 * time.Hour)},
		})
	}

	err := (&PlanCmd{}).Run(ctx)
	assert.ErrorIs(t, err, planner.ErrStaleProposal)

	blocks, err := ctx.Store.GetAllBlocks()
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "lab", blocks[0].TaskID)

	require.NoError(t, (&PlanCmd{Yes: true}).Run(ctx), "a fresh pass applies")
}

func TestPlanRefusesWhilePassLockHeld(t *testing.T) {
	ctx := setupContext(t)
	addTask(t, ctx, "essay", 60, now.Add(48*time.Hour))

	other := planner.NewGate(filepath.Join(ctx.Config.ConfigDir(), constants.PassLockfileName))
	err := other.Do(func() error {
		return (&PlanCmd{Yes: true}).Run(ctx)
	})
	assert.ErrorIs(t, err, planner.ErrPassInProgress)

	blocks, err := ctx.Store.GetAllBlocks()
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestWindow(t *testing.T) {
	day := func(d, h int) models.ScheduledBlock {
		start := now.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour)
		return models.ScheduledBlock{TaskID: "t", SessionIndex: d, Start: start, End: start.Add(time.Hour)}
	}
	blocks := []models.ScheduledBlock{day(-1, 2), day(0, 1), day(2, 3), day(7, 1)}
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	got := window(blocks, from, 7)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].SessionIndex)
	assert.Equal(t, 2, got[1].SessionIndex)
}

func TestRescheduleRepairsMissedTask(t *testing.T) {
	ctx := setupContext(t)
	due := now.Add(72 * time.Hour)
	addTask(t, ctx, "lab", 60, due)
	past := now.Add(-24 * time.Hour)
	require.NoError(t, ctx.Store.ApplySchedule(models.ScheduleUpdate{Upsert: []models.ScheduledBlock{
		{TaskID: "lab", Start: past, End: past.Add(time.Hour), Due: due},
	}}))

	require.NoError(t, (&RescheduleCmd{}).Run(ctx))

	blocks, err := ctx.Store.GetTaskBlocks("lab")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.False(t, blocks[0].Start.Before(now), "moved into the future")
}

func TestValidateReportsConflicts(t *testing.T) {
	ctx := setupContext(t)
	assert.NoError(t, (&ValidateCmd{}).Run(ctx))

	due := now.Add(48 * time.Hour)
	addTask(t, ctx, "late", 60, due)
	late := time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC)
	require.NoError(t, ctx.Store.ApplySchedule(models.ScheduleUpdate{Upsert: []models.ScheduledBlock{
		{TaskID: "late", Start: late, End: late.Add(time.Hour), Due: due},
	}}))
	assert.Error(t, (&ValidateCmd{}).Run(ctx), "block outside work hours")
}

func TestWatchRefusesWhenDisabled(t *testing.T) {
	ctx := setupContext(t)
	settings, err := ctx.Store.GetSettings()
	require.NoError(t, err)
	settings.AutoRescheduleEnabled = false
	require.NoError(t, ctx.Store.SaveSettings(settings))

	assert.Error(t, (&WatchCmd{}).Run(ctx))

	// the lock is released on the way out
	_, err = lockfile.Read(LockPath(ctx.Config))
	assert.Error(t, err)
}

func TestLockPath(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: "/data/studyplan/studyplan.db"}}
	assert.Equal(t, "/data/studyplan/"+constants.WatchLockfileName, LockPath(cfg))
	assert.Equal(t, constants.WatchLockfileName, filepath.Base(LockPath(nil)))
}
