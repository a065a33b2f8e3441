package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	pid int
	exe string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.exe }

func withProcesses(t *testing.T, self int, running map[int]string) {
	t.Helper()
	origFind, origPID := findProcessFunc, currentPID
	t.Cleanup(func() { findProcessFunc, currentPID = origFind, origPID })

	currentPID = func() int { return self }
	findProcessFunc = func(pid int) (ps.Process, error) {
		if exe, ok := running[pid]; ok {
			return fakeProcess{pid: pid, exe: exe}, nil
		}
		return nil, nil
	}
}

func writeLock(t *testing.T, path string, pid int) {
	t.Helper()
	content := fmt.Sprintf("%d|%s\n", pid, time.Now().UTC().Format(time.RFC3339))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch", "studyplan-watch.lock")
	withProcesses(t, 100, map[int]string{100: "studyplan"})

	lock, err := Acquire(path)
	require.NoError(t, err)

	info, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 100, info.PID)

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, lock.Release())
	assert.NoFileExists(t, path)
	assert.NoError(t, lock.Release(), "release is idempotent")
}

func TestAcquireTakesOverStaleLocks(t *testing.T) {
	tests := []struct {
		name    string
		content func(t *testing.T, path string)
	}{
		{name: "dead process", content: func(t *testing.T, path string) { writeLock(t, path, 42) }},
		{name: "pid reused by another program", content: func(t *testing.T, path string) { writeLock(t, path, 7) }},
		{name: "malformed", content: func(t *testing.T, path string) {
			require.NoError(t, os.WriteFile(path, []byte("garbage"), 0600))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "studyplan-watch.lock")
			withProcesses(t, 100, map[int]string{7: "bash"})
			tt.content(t, path)

			lock, err := Acquire(path)
			require.NoError(t, err)
			info, err := Read(path)
			require.NoError(t, err)
			assert.Equal(t, 100, info.PID)
			require.NoError(t, lock.Release())
		})
	}
}

func TestReleaseLeavesForeignLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyplan-watch.lock")
	withProcesses(t, 100, nil)

	lock, err := Acquire(path)
	require.NoError(t, err)
	writeLock(t, path, 200)

	require.NoError(t, lock.Release())
	assert.FileExists(t, path)
}

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "valid", content: "12|2025-03-10T09:00:00Z"},
		{name: "no separator", content: "12", wantErr: true},
		{name: "bad pid", content: "x|2025-03-10T09:00:00Z", wantErr: true},
		{name: "negative pid", content: "-1|2025-03-10T09:00:00Z", wantErr: true},
		{name: "bad time", content: "12|yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "lock")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			_, err := Read(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.lock")
	withProcesses(t, 100, map[int]string{200: "studyplan", 300: "bash"})

	_, ok := Holder(path)
	assert.False(t, ok, "no lock file")

	writeLock(t, path, 200)
	info, ok := Holder(path)
	require.True(t, ok)
	assert.Equal(t, 200, info.PID)

	writeLock(t, path, 300)
	_, ok = Holder(path)
	assert.False(t, ok, "pid reused by another program")
}
