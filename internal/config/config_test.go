package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/scheduler"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, filepath.Join(home, ".config/studyplan/studyplan.db"), cfg.Database.Path)
	assert.Equal(t, filepath.Join(home, ".config/studyplan"), cfg.ConfigDir())
	assert.Equal(t, scheduler.DefaultWeights(), cfg.Scheduler.Weights)
	assert.Equal(t, constants.DefaultBumpBudget, cfg.Scheduler.BumpBudget)
	assert.Equal(t, constants.MaxLookaheadDays, cfg.Scheduler.LookaheadDays)
	assert.Equal(t, "primary", cfg.Calendar.CalendarID)
	assert.False(t, cfg.Calendar.Enabled)
	assert.Empty(t, cfg.Holidays)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
debug: true
database:
  driver: postgres
  url: postgres://student@db.internal:5432/studyplan
calendar:
  enabled: true
  credentials_path: /etc/studyplan/credentials.json
  holiday_calendar: en.usa#holiday@group.v.calendar.google.com
  export: true
  rate_limit: 2.5
holidays:
  - 2025-12-25
  - 2026-01-01
scheduler:
  weights:
    urgency: 0.5
  bump_budget: 1
  lookahead_days: 30
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://student@db.internal:5432/studyplan", cfg.Database.URL)
	assert.True(t, cfg.Calendar.Export)
	assert.Equal(t, 2.5, cfg.Calendar.RateLimit)
	assert.Equal(t, []string{"2025-12-25", "2026-01-01"}, cfg.Holidays)
	assert.Len(t, cfg.HolidaySet(), 2)
	assert.Equal(t, 0.5, cfg.Scheduler.Weights.Urgency)
	assert.Equal(t, constants.DefaultWeightImportance, cfg.Scheduler.Weights.Importance, "unset weights keep their defaults")
	assert.Equal(t, 1, cfg.Scheduler.BumpBudget)
	assert.Equal(t, 30, cfg.Scheduler.LookaheadDays)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "database:\n  path: /tmp/from-file.db\n")
	t.Setenv("STUDYPLAN_DATABASE_PATH", "/tmp/from-env.db")
	t.Setenv("STUDYPLAN_HOLIDAYS", "2025-12-25, 2026-01-01")
	t.Setenv("STUDYPLAN_SCHEDULER_BUMP_BUDGET", "0")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env.db", cfg.Database.Path)
	assert.Equal(t, []string{"2025-12-25", "2026-01-01"}, cfg.Holidays)
	assert.Zero(t, cfg.Scheduler.BumpBudget)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "driver", content: "database:\n  driver: mysql\n"},
		{name: "negative weight", content: "scheduler:\n  weights:\n    urgency: -1\n"},
		{name: "zero weights", content: "scheduler:\n  weights:\n    urgency: 0\n    importance: 0\n    difficulty: 0\n    due_soon: 0\n"},
		{name: "bump budget", content: "scheduler:\n  bump_budget: -2\n"},
		{name: "lookahead", content: "scheduler:\n  lookahead_days: 0\n"},
		{name: "calendar without credentials", content: "calendar:\n  enabled: true\n"},
		{name: "export without calendar", content: "calendar:\n  export: true\n"},
		{name: "holiday", content: "holidays:\n  - christmas\n"},
		{name: "syntax", content: "database: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in, want string
	}{
		{"~", home},
		{"~/studyplan.db", filepath.Join(home, "studyplan.db")},
		{"~other/file", "~other/file"},
		{"/abs/path", "/abs/path"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandHome(tt.in), tt.in)
	}
}
