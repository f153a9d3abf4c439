package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:57110", cfg.ListenAddr)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 3, cfg.OffscreenImages)
	assert.Equal(t, "glslc", cfg.GLSLCPath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverlaysDefaultsOverOmittedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scsynth.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr = "0.0.0.0:9000"
worker_count = 8
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, 8, cfg.WorkerCount)
	// Unset keys keep Default()'s values.
	assert.Equal(t, 1280, int(cfg.OffscreenWidth))
	assert.Equal(t, "glslc", cfg.GLSLCPath)
}

func TestLoadRejectsInvalidWorkerCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scsynth.toml")
	require.NoError(t, os.WriteFile(path, []byte(`worker_count = 0`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsTooFewOffscreenImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scsynth.toml")
	require.NoError(t, os.WriteFile(path, []byte(`offscreen_images = 1`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadClearColorOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scsynth.toml")
	require.NoError(t, os.WriteFile(path, []byte(`clear_color = [0.1, 0.2, 0.3]`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, cfg.ClearColor[0], 1e-6)
	assert.InDelta(t, 0.2, cfg.ClearColor[1], 1e-6)
	assert.InDelta(t, 0.3, cfg.ClearColor[2], 1e-6)
	assert.Equal(t, float32(1), cfg.ClearColor[3])
}
