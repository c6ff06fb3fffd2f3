package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ferrywatch/ferries_core/internal/cache"
	"github.com/ferrywatch/ferries_core/internal/capacity"
	"github.com/ferrywatch/ferries_core/internal/db"
	"github.com/ferrywatch/ferries_core/internal/schedule"
	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config is the runtime configuration shared by the API server and the CLI
type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`

	Timezone string `yaml:"timezone"`

	Store struct {
		Backend    string    `yaml:"backend"`
		SQLitePath string    `yaml:"sqlite_path"`
		Postgres   db.Config `yaml:"postgres"`
	} `yaml:"store"`

	Redis cache.Config `yaml:"redis"`

	// CacheEnabled puts the Redis capacity cache in front of the upstream API
	CacheEnabled bool `yaml:"cache_enabled"`

	Server struct {
		Port            string `yaml:"port"`
		RateLimitPerMin int    `yaml:"rate_limit_per_minute"`
	} `yaml:"server"`

	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = capacity.DefaultBaseURL
	cfg.API.Timeout = 15 * time.Second
	cfg.Timezone = schedule.DefaultZone
	cfg.Store.Backend = StoreSQLite
	cfg.Store.SQLitePath = "ferries.db"
	cfg.Store.Postgres.MinConns = 1
	cfg.Store.Postgres.MaxConns = 5
	cfg.Redis = cache.Config{
		Host:     "localhost",
		Port:     6379,
		TTL:      time.Minute,
		MutexTTL: 10 * time.Second,
	}
	cfg.Server.Port = "8080"
	cfg.Server.RateLimitPerMin = 60
	cfg.RefreshInterval = 30 * time.Second
	return cfg
}

// Load applies the YAML file named by FERRIES_CONFIG (if set) and then
// environment overrides on top of the defaults
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("FERRIES_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.API.BaseURL = getEnv("FERRIES_API_URL", c.API.BaseURL)
	c.Timezone = getEnv("FERRIES_TIMEZONE", c.Timezone)
	c.Store.Backend = getEnv("FERRIES_STORE", c.Store.Backend)
	c.Store.SQLitePath = getEnv("FERRIES_SQLITE_PATH", c.Store.SQLitePath)
	c.Store.Postgres.DSN = getEnv("DATABASE_URL", c.Store.Postgres.DSN)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.TLSEnabled = getEnv("REDIS_TLS", strconv.FormatBool(c.Redis.TLSEnabled)) == "true"
	c.CacheEnabled = getEnv("FERRIES_CACHE", strconv.FormatBool(c.CacheEnabled)) == "true"
	c.Server.Port = getEnv("API_PORT", c.Server.Port)

	var err error
	if c.API.Timeout, err = getDuration("FERRIES_API_TIMEOUT", c.API.Timeout); err != nil {
		return err
	}
	if c.Redis.TTL, err = getDuration("CACHE_TTL", c.Redis.TTL); err != nil {
		return err
	}
	if c.Redis.MutexTTL, err = getDuration("CACHE_MUTEX_TTL", c.Redis.MutexTTL); err != nil {
		return err
	}
	if c.RefreshInterval, err = getDuration("FERRIES_REFRESH_INTERVAL", c.RefreshInterval); err != nil {
		return err
	}
	if c.Redis.Port, err = getInt("REDIS_PORT", c.Redis.Port); err != nil {
		return err
	}
	if c.Redis.DB, err = getInt("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.Server.RateLimitPerMin, err = getInt("RATE_LIMIT_PER_MINUTE", c.Server.RateLimitPerMin); err != nil {
		return err
	}
	return nil
}

// Validate rejects configurations that cannot be started
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case StoreRedis:
	case StorePostgres:
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if _, err := schedule.LoadZone(c.Timezone); err != nil {
		return err
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive")
	}
	return nil
}

// NeedsRedis reports whether any configured component talks to Redis
func (c *Config) NeedsRedis() bool {
	return c.CacheEnabled || c.Store.Backend == StoreRedis
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
