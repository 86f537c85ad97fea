// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	custom_errors "github-contributions/internal/errors"
)

// Storage drivers understood by the service.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	GithubToken     string        `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL    string        `mapstructure:"GITHUB_API_URL"`
	GithubRateLimit int           `mapstructure:"GITHUB_RATE_LIMIT"`
	UsersToSync     []string      `mapstructure:"USERS_TO_SYNC"`
	SyncInterval    time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncConcurrency int           `mapstructure:"SYNC_CONCURRENCY"`
	CheckpointEvery int           `mapstructure:"CHECKPOINT_EVERY"`
	StorageDriver   string        `mapstructure:"STORAGE_DRIVER"`
	DBURL           string        `mapstructure:"DB_URL"`
	MigrationsPath  string        `mapstructure:"MIGRATIONS_PATH"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	RedisKeyPrefix  string        `mapstructure:"REDIS_KEY_PREFIX"`
	SQLitePath      string        `mapstructure:"SQLITE_PATH"`
	CacheSize       int           `mapstructure:"CACHE_SIZE"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GITHUB_API_URL", "")
	v.SetDefault("GITHUB_RATE_LIMIT", 80)
	v.SetDefault("USERS_TO_SYNC", []string{})
	v.SetDefault("SYNC_INTERVAL", "1h")
	v.SetDefault("SYNC_CONCURRENCY", 2)
	v.SetDefault("CHECKPOINT_EVERY", 1000)
	v.SetDefault("STORAGE_DRIVER", DriverPostgres)
	v.SetDefault("DB_URL", "")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_KEY_PREFIX", "contributions:")
	v.SetDefault("SQLITE_PATH", "contributions.db")
	v.SetDefault("CACHE_SIZE", 128)
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GITHUB_TOKEN", "")

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and driver-specific settings.
func (c *Config) Validate() error {
	if c.GithubToken == "" {
		return errors.New("GITHUB_TOKEN is a required configuration field")
	}
	if c.CheckpointEvery <= 0 {
		return errors.New("CHECKPOINT_EVERY must be greater than zero")
	}
	if c.SyncConcurrency <= 0 {
		return errors.New("SYNC_CONCURRENCY must be greater than zero")
	}
	if c.GithubRateLimit <= 0 {
		return errors.New("GITHUB_RATE_LIMIT must be greater than zero")
	}

	switch c.StorageDriver {
	case DriverPostgres:
		if c.DBURL == "" {
			return errors.New("DB_URL is required when STORAGE_DRIVER is postgres")
		}
	case DriverRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when STORAGE_DRIVER is redis")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required when STORAGE_DRIVER is sqlite")
		}
	case DriverMemory:
	default:
		return &custom_errors.ErrUnknownStorageDriver{Driver: c.StorageDriver}
	}
	return nil
}
