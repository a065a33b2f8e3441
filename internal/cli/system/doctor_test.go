package system

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/config"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage/sqlite"
)

func doctorContext(t *testing.T, initialize bool) *cli.Context {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studyplan.db")
	store := sqlite.NewStore(path)
	if initialize {
		require.NoError(t, store.Init())
	}
	t.Cleanup(func() { store.Close() })
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: path}}
	return cli.New(store, cfg)
}

func TestDoctorHealthyDB(t *testing.T) {
	ctx := doctorContext(t, true)
	// missing backups and no watch daemon are warnings only
	assert.NoError(t, (&DoctorCmd{}).Run(ctx))
}

func TestDoctorUninitialized(t *testing.T) {
	ctx := doctorContext(t, false)
	assert.Error(t, (&DoctorCmd{}).Run(ctx))
	assert.Nil(t, ctx.Planner, "validation skipped without a database")
}

func TestDoctorReportsConflicts(t *testing.T) {
	ctx := doctorContext(t, true)
	ctx.Now = func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) }

	settings := models.DefaultSettings()
	settings.Timezone = "UTC"
	require.NoError(t, ctx.Store.SaveSettings(settings))
	due := time.Date(2025, 3, 12, 17, 0, 0, 0, time.UTC)
	require.NoError(t, ctx.Store.AddTask(models.Task{ID: "late", Title: "Late", Due: &due, EstimatedMin: 60, Urgency: constants.UrgencyMedium}))
	// outside work hours
	start := time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC)
	require.NoError(t, ctx.Store.ApplySchedule(models.ScheduleUpdate{
		Upsert: []models.ScheduledBlock{{TaskID: "late", Start: start, End: start.Add(time.Hour), Due: due, Status: constants.BlockPlanned}},
	}))

	assert.ErrorContains(t, checkValidation(ctx), "conflict")
}

func TestCheckBackupsPresent(t *testing.T) {
	ctx := doctorContext(t, true)
	err := checkBackupsPresent(ctx)
	assert.ErrorIs(t, err, errWarning)

	_, err = ctx.Backups().Create()
	require.NoError(t, err)
	assert.NoError(t, checkBackupsPresent(ctx))
}
