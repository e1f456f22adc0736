package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFrom(filepath.Join(dir, "missing.json"), "")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, "browse", cfg.UI.Mode)
}

func TestFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api": {"base_url": "https://civic.example.org", "timeout_sec": 10},
		"ui": {"mode": "compare"}
	}`), 0o600))

	t.Setenv("CIVIC_API_TOKEN", "secret")
	t.Setenv("CIVIC_UI_MODE", "Curate")
	t.Setenv("CIVIC_REFRESH_INTERVAL_SEC", "0")

	cfg, err := LoadFrom(path, "")

	require.NoError(t, err)
	assert.Equal(t, "https://civic.example.org", cfg.API.BaseURL)
	assert.Equal(t, 10, cfg.API.TimeoutSec)
	assert.Equal(t, "secret", cfg.API.Token)
	assert.Equal(t, "curate", cfg.UI.Mode)
	assert.Equal(t, time.Duration(0), cfg.RefreshInterval())
	assert.Equal(t, 5.0, cfg.API.RateLimit, "untouched fields keep their defaults")
}

func TestDotenvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("CIVIC_LOG_LEVEL=debug\nCIVIC_API_BURST=9\n"), 0o600))
	t.Setenv("CIVIC_LOG_LEVEL", "warn")
	// Registered so t.Setenv restores it after godotenv sets it.
	t.Setenv("CIVIC_API_BURST", "")
	require.NoError(t, os.Unsetenv("CIVIC_API_BURST"))

	cfg, err := LoadFrom(filepath.Join(dir, "missing.json"), dotenv)

	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 9, cfg.API.Burst)
}

func TestCorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	cfg, err := LoadFrom(path, "")

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().API, cfg.API)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.API.BaseURL = "not a url" }},
		{"zero timeout", func(c *Config) { c.API.TimeoutSec = 0 }},
		{"bad mode", func(c *Config) { c.UI.Mode = "shuffle" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"no data dir", func(c *Config) { c.DataDir = "" }},
		{"bad metrics addr", func(c *Config) { c.Metrics.Addr = "nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())

	withMetrics := DefaultConfig()
	withMetrics.Metrics.Addr = "127.0.0.1:9464"
	assert.NoError(t, withMetrics.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.API.Token = "tok"
	cfg.DataDir = "/var/lib/civic"

	require.NoError(t, cfg.Save(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadFrom(path, "")
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.API.Token)
	assert.Equal(t, "/var/lib/civic/civic.db", loaded.DBPath())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://civic.example.org
  rate_limit: 2.5
ui:
  mode: compare
  default_role: mayor
`), 0o600))

	cfg, err := LoadFrom(path, "")

	require.NoError(t, err)
	assert.Equal(t, "https://civic.example.org", cfg.API.BaseURL)
	assert.Equal(t, 2.5, cfg.API.RateLimit)
	assert.Equal(t, "compare", cfg.UI.Mode)
	assert.Equal(t, "mayor", cfg.UI.DefaultRole)
	assert.Equal(t, 30, cfg.API.TimeoutSec, "fields absent from the file keep their defaults")
}

func TestSaveYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := DefaultConfig()
	cfg.UI.ResultLimit = 50
	cfg.Metrics.Addr = "127.0.0.1:9464"

	require.NoError(t, cfg.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "result_limit: 50")

	loaded, err := LoadFrom(path, "")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfigPathPrefersYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".civic", "config.json"), ConfigPath())

	require.NoError(t, os.MkdirAll(filepath.Join(home, ".civic"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".civic", "config.yaml"), []byte("{}"), 0o600))

	assert.Equal(t, filepath.Join(home, ".civic", "config.yaml"), ConfigPath())
}
