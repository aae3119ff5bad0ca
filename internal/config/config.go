// Package config loads the analytics service configuration from a TOML file
// and environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/castlemilk/pfinance/analytics/internal/anomaly"
	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/logging"
	"github.com/castlemilk/pfinance/analytics/internal/projection"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
	"github.com/castlemilk/pfinance/analytics/internal/series"
)

// EnvConfigPath names the config file when no path is given explicitly.
const EnvConfigPath = "PFA_CONFIG"

// Store drivers.
const (
	StoreMemory    = "memory"
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheGCS    = "gcs"
)

// Config holds all analytics service configuration.
type Config struct {
	Server    ServerConfig       `toml:"server"`
	Store     StoreConfig        `toml:"store"`
	Cache     CacheConfig        `toml:"cache"`
	Log       logging.Options    `toml:"log"`
	Forecast  ForecastConfig     `toml:"forecast"`
	Anomaly   anomaly.Thresholds `toml:"anomaly"`
	Recurring recurring.Options  `toml:"recurring"`
	Goals     projection.Options `toml:"goals"`
	Scheduler SchedulerConfig    `toml:"scheduler"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           string   `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver string `toml:"driver"`
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN             string `toml:"dsn,omitempty"`
	ProjectID       string `toml:"project_id,omitempty"`
	CredentialsFile string `toml:"credentials_file,omitempty"`
}

// CacheConfig selects where forecast payloads are cached.
type CacheConfig struct {
	Driver string   `toml:"driver"`
	Bucket string   `toml:"bucket,omitempty"`
	Prefix string   `toml:"prefix,omitempty"`
	TTL    Duration `toml:"ttl"`
}

// ForecastConfig tunes forecasting.
type ForecastConfig struct {
	DefaultPeriods  int      `toml:"default_periods"`
	MaxPeriods      int      `toml:"max_periods"`
	MinObservations int      `toml:"min_observations"`
	GBRTMinRows     int      `toml:"gbrt_min_rows"`
	FitTimeout      Duration `toml:"fit_timeout"`
	MinDays         int      `toml:"min_days"`
	FallbackDays    int      `toml:"fallback_days"`
}

// Dispatcher returns the dispatcher settings.
func (f ForecastConfig) Dispatcher() forecast.Config {
	return forecast.Config{
		MinObservations: f.MinObservations,
		GBRTMinRows:     f.GBRTMinRows,
		FitTimeout:      f.FitTimeout.Duration,
	}
}

// Series returns the series builder settings.
func (f ForecastConfig) Series() series.Options {
	return series.Options{MinDays: f.MinDays, FallbackDays: f.FallbackDays}
}

// SchedulerConfig controls the nightly batch runs.
type SchedulerConfig struct {
	Enabled bool `toml:"enabled"`
	// Spec is a standard five-field cron expression.
	Spec string `toml:"spec"`
}

// Duration wraps time.Duration so it can be written as "20s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	fc := forecast.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Port: "8111",
			AllowedOrigins: []string{
				"http://localhost:1234",
				"http://127.0.0.1:1234",
			},
		},
		Store: StoreConfig{Driver: StoreMemory},
		Cache: CacheConfig{Driver: CacheMemory, Prefix: "forecasts/", TTL: Duration{15 * time.Minute}},
		Log:   logging.Options{Level: "info", Format: "json"},
		Forecast: ForecastConfig{
			DefaultPeriods:  30,
			MaxPeriods:      3650,
			MinObservations: fc.MinObservations,
			GBRTMinRows:     fc.GBRTMinRows,
			FitTimeout:      Duration{fc.FitTimeout},
			MinDays:         series.DefaultMinDays,
			FallbackDays:    series.DefaultFallbackDays,
		},
		Anomaly:   anomaly.DefaultThresholds(),
		Recurring: recurring.DefaultOptions(),
		Goals:     projection.DefaultOptions(),
		Scheduler: SchedulerConfig{Enabled: false, Spec: "0 3 * * *"},
	}
}

// Load reads the config file at path (or $PFA_CONFIG when path is empty),
// applies environment overrides and validates the result. A missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("reading config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides file values with the deployment environment.
func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = getEnv("STORE_DSN", cfg.Store.DSN)
	cfg.Store.ProjectID = getEnv("GOOGLE_CLOUD_PROJECT", cfg.Store.ProjectID)
	cfg.Store.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", cfg.Store.CredentialsFile)
	if bucket := getEnv("CACHE_BUCKET", ""); bucket != "" {
		cfg.Cache.Driver = CacheGCS
		cfg.Cache.Bucket = bucket
	}
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the %s driver", c.Store.Driver)
		}
	case StoreFirestore:
		if c.Store.ProjectID == "" {
			return fmt.Errorf("store.project_id is required for the firestore driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheGCS:
		if c.Cache.Bucket == "" {
			return fmt.Errorf("cache.bucket is required for the gcs driver")
		}
	default:
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}

	if c.Forecast.DefaultPeriods <= 0 || c.Forecast.DefaultPeriods > c.Forecast.MaxPeriods {
		return fmt.Errorf("forecast.default_periods must be in 1..%d", c.Forecast.MaxPeriods)
	}
	if c.Forecast.FitTimeout.Duration <= 0 {
		return fmt.Errorf("forecast.fit_timeout must be positive")
	}
	if c.Anomaly.ZScore <= 0 || c.Anomaly.OverallMultiplier <= 0 {
		return fmt.Errorf("anomaly thresholds must be positive")
	}
	if c.Scheduler.Enabled && strings.TrimSpace(c.Scheduler.Spec) == "" {
		return fmt.Errorf("scheduler.spec is required when the scheduler is enabled")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
