package flutterhost

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
library_path = "/opt/engine/libflutter_engine.so"
assets_path = "build/flutter_assets"
log_level = "debug"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/engine/libflutter_engine.so", cfg.LibraryPath)
	assert.Equal(t, "build/flutter_assets", cfg.AssetsPath)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "debug"`), 0o644))

	t.Setenv("FLUTTERHOST_LOG_LEVEL", "error")
	t.Setenv("FLUTTERHOST_TRACE_PATH", "/tmp/trace.bin")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, cfg.SlogLevel())
	assert.Equal(t, "/tmp/trace.bin", cfg.TracePath)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestSlogLevelUnknownFallsBackToInfo(t *testing.T) {
	cfg := &Config{LogLevel: "verbose"}
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
