package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "goal_planner.db", cfg.DatabaseURL)
	assert.Equal(t, 360, cfg.FocusThresholdMinutes)
	assert.Equal(t, time.Minute, cfg.PurgeInterval)
	assert.Equal(t, 30*time.Second, cfg.PurgeAge)
	assert.Equal(t, "09:00", cfg.ReportTime)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Empty(t, cfg.TelegramToken)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", " token ")
	t.Setenv("GOALPLANNER_FOCUS_THRESHOLD_MINUTES", "300")
	t.Setenv("GOALPLANNER_PURGE_INTERVAL", "5m")
	t.Setenv("GOALPLANNER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.TelegramToken)
	assert.Equal(t, 300, cfg.FocusThresholdMinutes)
	assert.Equal(t, 5*time.Minute, cfg.PurgeInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFile_YAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "planner.yaml")
	content := "database_url: data/plans.db\ntimezone: UTC\nreport_time: \"07:30\"\nlog:\n  dir: logs\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "data/plans.db", cfg.DatabaseURL)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "07:30", cfg.ReportTime)
	assert.Equal(t, "logs", cfg.Log.Dir)
}

func TestLoadFile_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := LoadFile("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty database", func(c *Config) { c.DatabaseURL = "" }, true},
		{"zero threshold", func(c *Config) { c.FocusThresholdMinutes = 0 }, true},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"bad report time", func(c *Config) { c.ReportTime = "25:99" }, true},
		{"no report time", func(c *Config) { c.ReportTime = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Timezone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}
