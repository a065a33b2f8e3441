package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage/sqlite"
)

func setupContext(t *testing.T) *cli.Context {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "studyplan.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return cli.New(store, nil)
}

func ptr[T any](v T) *T { return &v }

func TestSettingsCmdList(t *testing.T) {
	ctx := setupContext(t)
	assert.NoError(t, (&SettingsCmd{List: true}).Run(ctx))
}

func TestSettingsCmdUpdates(t *testing.T) {
	ctx := setupContext(t)
	cmd := &SettingsCmd{
		DayStart:      ptr("08:00"),
		DayEnd:        ptr("20:00"),
		WorkDays:      ptr("mon,wed,fri"),
		Breaks:        ptr(false),
		PushMissed:    ptr(false),
		MaxTasksPush:  ptr(2),
		CheckInterval: ptr(5),
	}
	require.NoError(t, cmd.Run(ctx))

	got, err := ctx.Store.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "08:00", got.DayStart)
	assert.Equal(t, "20:00", got.DayEnd)
	assert.Len(t, got.WorkDays, 3)
	assert.False(t, got.BreaksEnabled)
	assert.False(t, got.PushMissedTasks)
	assert.Equal(t, 2, got.MaxTasksToPush)
	assert.Equal(t, 5, got.CheckIntervalMin)
}

func TestSettingsCmdRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		cmd  SettingsCmd
	}{
		{"end before start", SettingsCmd{DayStart: ptr("18:00"), DayEnd: ptr("09:00")}},
		{"bad weekday", SettingsCmd{WorkDays: ptr("mon,funday")}},
		{"bad timezone", SettingsCmd{Timezone: ptr("Mars/Olympus")}},
		{"zero interval", SettingsCmd{CheckInterval: ptr(0)}},
		{"min above max", SettingsCmd{MinBlock: ptr(120), MaxBlock: ptr(60)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := setupContext(t)
			assert.Error(t, tt.cmd.Run(ctx))

			got, err := ctx.Store.GetSettings()
			require.NoError(t, err)
			assert.Equal(t, models.DefaultSettings(), got, "nothing saved")
		})
	}
}

func TestEnergySet(t *testing.T) {
	ctx := setupContext(t)
	require.NoError(t, (&EnergySetCmd{Scores: []string{"9=0.2", "13-15=0.4"}}).Run(ctx))

	got, err := ctx.Store.GetEnergyProfile()
	require.NoError(t, err)
	def := models.DefaultEnergyProfile()
	assert.Equal(t, 0.2, got[9])
	assert.Equal(t, 0.4, got[13])
	assert.Equal(t, 0.4, got[14])
	assert.Equal(t, def[15], got[15], "range end is exclusive")

	require.NoError(t, (&EnergySetCmd{Scores: []string{"10=0.3"}}).Run(ctx))
	got, err = ctx.Store.GetEnergyProfile()
	require.NoError(t, err)
	assert.Equal(t, 0.2, got[9], "earlier edits kept")

	require.NoError(t, (&EnergySetCmd{Reset: true}).Run(ctx))
	got, err = ctx.Store.GetEnergyProfile()
	require.NoError(t, err)
	assert.Equal(t, def, got)

	assert.NoError(t, (&EnergyShowCmd{}).Run(ctx))
}

func TestApplyScore(t *testing.T) {
	tests := []struct {
		arg     string
		wantErr bool
	}{
		{arg: "0=0"},
		{arg: "22-24=0.1"},
		{arg: "9", wantErr: true},
		{arg: "9=high", wantErr: true},
		{arg: "24=0.5", wantErr: true},
		{arg: "15-13=0.5", wantErr: true},
		{arg: "x-3=0.5", wantErr: true},
		{arg: "9=1.5"}, // out of range is caught by Validate
	}
	for _, tt := range tests {
		p := models.DefaultEnergyProfile()
		err := applyScore(&p, tt.arg)
		if tt.wantErr {
			assert.Error(t, err, tt.arg)
		} else {
			assert.NoError(t, err, tt.arg)
		}
	}
}
