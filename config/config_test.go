package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	mc, err := cfg.Risk.Monitor()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, mc.PriceTimeout)
	assert.Equal(t, 4, mc.MaxConcurrent)
	assert.Equal(t, -8.0, mc.Thresholds.CriticalPercent)
}

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tradelog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ledger:
  db_path: /tmp/ledger.db
  timezone: America/New_York
risk:
  warning_percent: -4
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ledger.db", cfg.Ledger.DBPath)
	assert.Equal(t, -4.0, cfg.Risk.WarningPercent)
	assert.Equal(t, -8.0, cfg.Risk.CriticalPercent)
	assert.Equal(t, "30s", cfg.Risk.PollInterval)
	assert.Equal(t, "alpaca", cfg.Broker.Provider)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"cfg.yaml", "cfg.json"} {
		path := filepath.Join(dir, name)
		cfg := Default()
		cfg.Ledger.DBPath = "x.db"
		cfg.Log.Pretty = true
		require.NoError(t, cfg.SaveToFile(path))

		got, err := LoadFromFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, cfg, got, name)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no db", func(c *Config) { c.Ledger.DBPath = "" }},
		{"bad tz", func(c *Config) { c.Ledger.Timezone = "Mars/Olympus" }},
		{"positive warning", func(c *Config) { c.Risk.WarningPercent = 5 }},
		{"critical above warning", func(c *Config) { c.Risk.CriticalPercent = -2 }},
		{"bad poll", func(c *Config) { c.Risk.PollInterval = "soon" }},
		{"zero timeout", func(c *Config) { c.Risk.PriceTimeout = "0s" }},
		{"no fetches", func(c *Config) { c.Risk.MaxConcurrentFetches = 0 }},
		{"provider", func(c *Config) { c.Broker.Provider = "ibkr" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger: [unterminated"), 0o644))
	_, err := LoadFromFile(path)
	assert.Error(t, err)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TRADELOG_DB", "/data/env.db")
	t.Setenv("TRADELOG_TZ", "Europe/London")
	t.Setenv("TRADELOG_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "/data/env.db", cfg.Ledger.DBPath)
	assert.Equal(t, "Europe/London", cfg.Ledger.Timezone)
	assert.Equal(t, "debug", cfg.Log.Level)
}
