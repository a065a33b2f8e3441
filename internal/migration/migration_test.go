package migration

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func files(m map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, content := range m {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

func TestApplyMigrations(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, files(map[string]string{
		"001_init.sql":   "CREATE TABLE tasks (id TEXT PRIMARY KEY);",
		"002_blocks.sql": "CREATE TABLE blocks (task_id TEXT);",
		"README.md":      "ignored",
	}))

	version, err := runner.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	var logs []string
	applied, err := runner.ApplyMigrations(func(s string) { logs = append(logs, s) })
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.NotEmpty(t, logs)

	version, err = runner.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	_, err = db.Exec("INSERT INTO blocks (task_id) VALUES ('a')")
	assert.NoError(t, err)

	applied, err = runner.ApplyMigrations(nil)
	require.NoError(t, err)
	assert.Zero(t, applied, "second run is a no-op")
}

func TestApplyMigrationsIsIncremental(t *testing.T) {
	db := setupTestDB(t)
	first := files(map[string]string{"001_init.sql": "CREATE TABLE tasks (id TEXT);"})
	_, err := NewRunner(db, first).ApplyMigrations(nil)
	require.NoError(t, err)

	second := files(map[string]string{
		"001_init.sql": "CREATE TABLE tasks (id TEXT);",
		"002_more.sql": "ALTER TABLE tasks ADD COLUMN title TEXT;",
	})
	runner := NewRunner(db, second)
	pending, err := runner.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "more", pending[0].Name)

	applied, err := runner.ApplyMigrations(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
}

func TestApplyMigrationsRollsBackFailures(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, files(map[string]string{
		"001_init.sql":   "CREATE TABLE tasks (id TEXT);",
		"002_broken.sql": "CREATE TABLE nope (;",
	}))

	applied, err := runner.ApplyMigrations(nil)
	require.Error(t, err)
	assert.Equal(t, 1, applied)

	version, err := runner.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestMigrationsRejectsBadFilenames(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{name: "no separator", files: map[string]string{"001.sql": ""}},
		{name: "non numeric", files: map[string]string{"abc_init.sql": ""}},
		{name: "zero version", files: map[string]string{"000_init.sql": ""}},
		{name: "duplicate", files: map[string]string{"001_a.sql": "", "1_b.sql": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(nil, files(tt.files)).Migrations()
			assert.Error(t, err)
		})
	}
}

func TestValidateVersion(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, files(map[string]string{"001_init.sql": "CREATE TABLE tasks (id TEXT);"}))
	_, err := runner.ApplyMigrations(nil)
	require.NoError(t, err)
	require.NoError(t, runner.ValidateVersion())

	_, err = db.Exec("UPDATE schema_version SET version = 9")
	require.NoError(t, err)
	assert.ErrorContains(t, runner.ValidateVersion(), "newer than supported")

	_, err = runner.ApplyMigrations(nil)
	assert.Error(t, err)
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "?", NewRunner(nil, nil).placeholder())
	assert.Equal(t, "$1", NewRunner(nil, nil, WithDollarPlaceholders()).placeholder())
}
