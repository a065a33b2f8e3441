package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "file only", cfg: Config{}},
		{name: "debug", cfg: Config{Debug: true}},
		{name: "stderr mirror", cfg: Config{Stderr: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configDir := filepath.Join(t.TempDir(), "config")
			tt.cfg.ConfigDir = configDir

			require.NoError(t, Init(tt.cfg))
			require.NotNil(t, Logger)

			_, err := os.Stat(filepath.Join(configDir, "logs"))
			assert.NoError(t, err)

			Debug("debug message")
			Info("info message", "key", "value")
			Warn("warn message")
			Error("error message")
		})
	}
}

func TestHelpersWithoutInit(t *testing.T) {
	Logger = nil

	assert.NotPanics(t, func() {
		Debug("debug")
		Info("info")
		Warn("warn")
		Error("error")
	})
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { Logger = nil })

	Warn("holiday source unavailable", "error", "boom")

	out := buf.String()
	assert.Contains(t, out, "holiday source unavailable")
	assert.Contains(t, out, "boom")
}
