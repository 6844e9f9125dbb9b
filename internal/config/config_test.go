package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10, cfg.Buffer.Capacity)
	assert.Equal(t, 50, cfg.Buffer.HardCap)
	assert.Equal(t, 5, cfg.Summary.Interval)
	assert.Equal(t, 1.0, cfg.Ranking.MatchWeight)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
	assert.Equal(t, 7411, cfg.Server.Port)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
storage:
  path: /tmp/custom.db
buffer:
  capacity: 3
ranking:
  pinned_weight: 4.5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.Storage.Path)
	assert.Equal(t, 3, cfg.Buffer.Capacity)
	assert.Equal(t, 4.5, cfg.Ranking.PinnedWeight)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5, cfg.Summary.Interval)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buffer: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDBPathResolution(t *testing.T) {
	cfg := Default()

	cfg.Storage.Path = "/explicit/path.db"
	assert.Equal(t, "/explicit/path.db", cfg.DBPath())

	cfg.Storage.Path = ""
	t.Setenv("MEMORYMAN_DB", "/from/env.db")
	assert.Equal(t, "/from/env.db", cfg.DBPath())

	t.Setenv("MEMORYMAN_DB", "")
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".memoryman", "memory.db"), cfg.DBPath())
}

func TestEngineOptionsMapping(t *testing.T) {
	cfg := Default()
	cfg.Storage.Path = "/tmp/x.db"
	cfg.Buffer.Capacity = 7
	cfg.Ranking.RecencyWeight = 0.9

	opts := cfg.EngineOptions()
	assert.Equal(t, "/tmp/x.db", opts.Path)
	assert.Equal(t, 7, opts.BufferCapacity)
	assert.Equal(t, 0.9, opts.Weights.Recency)
}

func TestListenAddr(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:7411", cfg.ListenAddr())
}
