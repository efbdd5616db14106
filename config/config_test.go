package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHORDCOACH_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(40*time.Millisecond, cfg.AggregatorWindow())
	opts := cfg.SessionOptions()
	assert.Equal("beginner", opts.Difficulty)
	assert.Equal(10, opts.SessionLength)
	assert.Equal(500*time.Millisecond, opts.MinHold)
	assert.Equal(1500*time.Millisecond, opts.FeedbackDuration)
	assert.False(opts.RequirePerfectMatch)
	assert.Equal(uint64(0), opts.Seed)
	assert.Equal(":8080", cfg.ListenAddr)
	assert.Equal(31250, cfg.Serial.Baud)
	assert.Equal("us-east-1", cfg.Export.Region)
	assert.Empty(cfg.Export.Table)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coach.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
difficulty: expert
session_length: 25
min_hold_ms: 300
require_perfect_match: true
seed: 42
midi:
  port: Launchkey
export:
  table: chordcoach-sessions
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal("expert", cfg.Difficulty)
	assert.Equal(25, cfg.SessionLength)
	assert.Equal(300*time.Millisecond, cfg.SessionOptions().MinHold)
	assert.True(cfg.RequirePerfectMatch)
	assert.Equal(uint64(42), cfg.Seed)
	assert.Equal("Launchkey", cfg.Midi.Port)
	assert.Equal("chordcoach-sessions", cfg.Export.Table)
	assert.Equal(1500, cfg.FeedbackMs, "unset keys keep their defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("difficulty: advanced\n"), 0o644))
	t.Setenv("CHORDCOACH_HOME", dir)
	t.Setenv("CHORDCOACH_DIFFICULTY", "intermediate")
	t.Setenv("CHORDCOACH_SERIAL_PORT", "/dev/ttyACM0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "intermediate", cfg.Difficulty)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("difficulty: [unterminated\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
