package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvCfgFile, filepath.Join(t.TempDir(), "nonexistent.json"))
	t.Setenv(EnvMusicRoot, "")
	t.Setenv(EnvCacheDays, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.CacheDurationDays)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, UpdModeScan, cfg.UpdateMode)
	assert.Empty(t, cfg.MusicRoot)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"music_root": "/music",
		"cache_duration_days": 7,
		"log_level": "debug",
		"update_mode": "notify"
	}`), 0644))
	t.Setenv(EnvCfgFile, path)
	t.Setenv(EnvMusicRoot, "")
	t.Setenv(EnvCacheDays, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/music", cfg.MusicRoot)
	assert.Equal(t, 7, cfg.CacheDurationDays)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, UpdModeNotify, cfg.UpdateMode)
}

func TestLoadEnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"music_root": "/music",
		"cache_duration_days": 7
	}`), 0644))
	t.Setenv(EnvCfgFile, path)
	t.Setenv(EnvMusicRoot, "/other")
	t.Setenv(EnvCacheDays, "14")
	t.Setenv(EnvLogLevel, "warning")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/other", cfg.MusicRoot)
	assert.Equal(t, 14, cfg.CacheDurationDays)
	assert.Equal(t, "warning", cfg.LogLevel)
}

func TestLoadRejectsMalformedCacheDays(t *testing.T) {
	t.Setenv(EnvCfgFile, filepath.Join(t.TempDir(), "nonexistent.json"))
	t.Setenv(EnvCacheDays, "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	root := t.TempDir()

	valid := Cfg{
		MusicRoot:         root,
		CacheDurationDays: 30,
		LogLevel:          "info",
		UpdateMode:        UpdModeScan,
		UpdateInterval:    300,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Cfg)
	}{
		{"music root unset", func(c *Cfg) { c.MusicRoot = "" }},
		{"music root relative", func(c *Cfg) { c.MusicRoot = "music" }},
		{"music root missing", func(c *Cfg) { c.MusicRoot = filepath.Join(root, "nope") }},
		{"cache days zero", func(c *Cfg) { c.CacheDurationDays = 0 }},
		{"unknown update mode", func(c *Cfg) { c.UpdateMode = "polling" }},
		{"update interval zero", func(c *Cfg) { c.UpdateInterval = 0 }},
		{"log dir relative", func(c *Cfg) { c.LogDir = "logs" }},
		{"log dir missing", func(c *Cfg) { c.LogDir = filepath.Join(root, "nope") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
