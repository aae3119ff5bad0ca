package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		EnvConfigPath, "PORT", "STORE_DRIVER", "STORE_DSN", "GOOGLE_CLOUD_PROJECT",
		"GOOGLE_APPLICATION_CREDENTIALS", "CACHE_BUCKET", "LOG_LEVEL",
	} {
		if value, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { _ = os.Setenv(key, value) })
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "pfa.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8111", cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 20*time.Second, cfg.Forecast.FitTimeout.Duration)
	assert.Equal(t, 2.0, cfg.Anomaly.ZScore)
	assert.Equal(t, 3, cfg.Recurring.MinOccurrences)
	assert.Equal(t, 120, cfg.Goals.WindowDays)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Forecast, cfg.Forecast)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[store]
driver = "sqlite"
dsn = "/tmp/pfa.db"

[forecast]
default_periods = 14
max_periods = 365
fit_timeout = "5s"

[anomaly]
z_score = 3.0
category_ratio = 2.0
overall_multiplier = 2.5

[scheduler]
enabled = true
spec = "30 2 * * *"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, 14, cfg.Forecast.DefaultPeriods)
	assert.Equal(t, 5*time.Second, cfg.Forecast.FitTimeout.Duration)
	assert.Equal(t, 5*time.Second, cfg.Forecast.Dispatcher().FitTimeout)
	assert.Equal(t, 3.0, cfg.Anomaly.ZScore)
	assert.True(t, cfg.Scheduler.Enabled)
	// untouched sections keep their defaults
	assert.Equal(t, 10, cfg.Forecast.MinObservations)
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("STORE_DSN", "postgres://localhost/pfa")
	t.Setenv("CACHE_BUCKET", "pfa-cache")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/pfa", cfg.Store.DSN)
	assert.Equal(t, CacheGCS, cfg.Cache.Driver)
	assert.Equal(t, "pfa-cache", cfg.Cache.Bucket)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestConfigPathFromEnvironment(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[server]\nport = \"7000\"\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sqlite without dsn", func(c *Config) { c.Store.Driver = StoreSQLite }},
		{"firestore without project", func(c *Config) { c.Store.Driver = StoreFirestore }},
		{"unknown store", func(c *Config) { c.Store.Driver = "mongo" }},
		{"gcs without bucket", func(c *Config) { c.Cache.Driver = CacheGCS }},
		{"periods beyond max", func(c *Config) { c.Forecast.DefaultPeriods = 5000 }},
		{"zero timeout", func(c *Config) { c.Forecast.FitTimeout = Duration{} }},
		{"scheduler without spec", func(c *Config) { c.Scheduler = SchedulerConfig{Enabled: true} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestInvalidDuration(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[forecast]\nfit_timeout = \"soon\"\n")
	_, err := Load(path)
	assert.Error(t, err)
}
