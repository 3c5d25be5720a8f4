// Package config defines service configuration and how it is loaded.
package config

import (
	"context"
	"fmt"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory or postgres.
	Store string `koanf:"store"`

	// PostgresURL is the pgx connection string used when Store is postgres.
	PostgresURL string `koanf:"postgres_url"`

	// RedisURL enables the shared statistics cache when set.
	RedisURL string `koanf:"redis_url"`

	// StatsCacheTTL bounds how long a cached statistics snapshot is served.
	StatsCacheTTL time.Duration `koanf:"stats_cache_ttl"`

	// AutoLockInterval is how often matches about to start get locked.
	// Zero disables the job.
	AutoLockInterval time.Duration `koanf:"auto_lock_interval"`

	// AutoLockMinutesBefore is the lead time before kickoff for auto locking.
	AutoLockMinutesBefore int `koanf:"auto_lock_minutes_before"`

	// ScoreSweepInterval is how often finished matches with unscored
	// predictions are settled. Zero disables the job.
	ScoreSweepInterval time.Duration `koanf:"score_sweep_interval"`

	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// DefaultLeaderboardLimit applies when GET /leaderboard has no limit.
	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DefaultMinPredictions is the leaderboard qualification threshold.
	DefaultMinPredictions int `koanf:"default_min_predictions"`

	// OperationTimeout bounds each service call.
	OperationTimeout time.Duration `koanf:"op_timeout"`

	// MetricsRefreshInterval drives the gauge updaters.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`

	// MetricsEnabled turns metric recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":8080",
		Store:                   StoreMemory,
		StatsCacheTTL:           5 * time.Minute,
		AutoLockInterval:        time.Minute,
		AutoLockMinutesBefore:   5,
		ScoreSweepInterval:      5 * time.Minute,
		AllowedOrigins:          []string{"*"},
		DefaultLeaderboardLimit: 20,
		MaxLeaderboardLimit:     100,
		DefaultMinPredictions:   0,
		OperationTimeout:        5 * time.Second,
		MetricsRefreshInterval:  10 * time.Second,
		MetricsEnabled:          true,
		MetricsNamespace:        "scoreline",
		ShutdownTimeout:         10 * time.Second,
	}
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.Store != StoreMemory && c.Store != StorePostgres:
		return invalid(fmt.Sprintf("store must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store))
	case c.Store == StorePostgres && c.PostgresURL == "":
		return invalid("postgres_url is required when store is postgres")
	case c.StatsCacheTTL <= 0:
		return invalid("stats_cache_ttl must be positive")
	case c.AutoLockInterval < 0, c.ScoreSweepInterval < 0:
		return invalid("job intervals must not be negative")
	case c.AutoLockMinutesBefore < 0:
		return invalid("auto_lock_minutes_before must not be negative")
	case c.DefaultLeaderboardLimit <= 0 || c.MaxLeaderboardLimit < c.DefaultLeaderboardLimit:
		return invalid("leaderboard limits must satisfy 0 < default <= max")
	case c.DefaultMinPredictions < 0:
		return invalid("default_min_predictions must not be negative")
	case c.OperationTimeout <= 0:
		return invalid("op_timeout must be positive")
	case c.MetricsRefreshInterval <= 0:
		return invalid("metrics_refresh_interval must be positive")
	case c.MetricsNamespace == "":
		return invalid("metrics_namespace must not be empty")
	case c.ShutdownTimeout <= 0:
		return invalid("shutdown_timeout must be positive")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
