package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 4, cfg.Validate.MaxWorkers)
	require.Equal(t, 30*time.Second, cfg.Validate.ReadTimeout)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
log:
  level: debug
  file: archivelist.log
validate:
  max_workers: 8
  read_timeout: 10s
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "archivelist.log", cfg.Log.File)
	require.Equal(t, 8, cfg.Validate.MaxWorkers)
	require.Equal(t, 10*time.Second, cfg.Validate.ReadTimeout)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [not a map"), 0o644))
	_, err := LoadConfig(path)
	require.Error(t, err)
}
