package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
	StorageTypeSQLite   = "sqlite"
)

// ConfigFileEnv names the optional YAML file read before the environment
const ConfigFileEnv = "CONFIG_FILE"

// Config holds everything the server needs at startup. Values come from
// Default, then the YAML file named by CONFIG_FILE, then the environment.
type Config struct {
	Env      string `yaml:"env" env:"ENV"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	HTTPHost            string        `yaml:"http_host" env:"HTTP_HOST"`
	HTTPPort            int           `yaml:"http_port" env:"HTTP_PORT"`
	HTTPReadTimeout     time.Duration `yaml:"http_read_timeout" env:"HTTP_READ_TIMEOUT"`
	HTTPWriteTimeout    time.Duration `yaml:"http_write_timeout" env:"HTTP_WRITE_TIMEOUT"`
	HTTPShutdownTimeout time.Duration `yaml:"http_shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT"`

	StorageType     string        `yaml:"storage_type" env:"STORAGE_TYPE"`
	RedisURL        string        `yaml:"redis_url" env:"REDIS_URL"`
	RedisPoolSize   int           `yaml:"redis_pool_size" env:"REDIS_POOL_SIZE"`
	RedisSessionTTL time.Duration `yaml:"redis_session_ttl" env:"REDIS_SESSION_TTL"`
	DatabaseURL     string        `yaml:"database_url" env:"DATABASE_URL"`
	SQLitePath      string        `yaml:"sqlite_path" env:"SQLITE_PATH"`

	DevMode bool `yaml:"dev_mode" env:"DEV_MODE"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Env:                 "production",
		HTTPHost:            "",
		HTTPPort:            8080,
		HTTPReadTimeout:     15 * time.Second,
		HTTPWriteTimeout:    15 * time.Second,
		HTTPShutdownTimeout: 10 * time.Second,
		StorageType:         StorageTypeMemory,
		RedisPoolSize:       10,
		RedisSessionTTL:     24 * time.Hour,
		SQLitePath:          "data/sessions.db",
	}
}

// Load builds the configuration from the process environment
func Load() (*Config, error) {
	return LoadFrom(env.ToMap(os.Environ()))
}

// LoadFrom builds the configuration from the given environment map
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(environ[ConfigFileEnv]); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the keys present in a YAML file
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTPPort)
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"HTTP_READ_TIMEOUT", c.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", c.HTTPWriteTimeout},
		{"HTTP_SHUTDOWN_TIMEOUT", c.HTTPShutdownTimeout},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	switch c.StorageType {
	case StorageTypeMemory:
	case StorageTypeRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORAGE_TYPE=redis")
		}
		if c.RedisPoolSize <= 0 {
			return fmt.Errorf("REDIS_POOL_SIZE must be positive, got %d", c.RedisPoolSize)
		}
	case StorageTypePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_TYPE=postgres")
		}
	case StorageTypeSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORAGE_TYPE=sqlite")
		}
	default:
		return fmt.Errorf("STORAGE_TYPE must be one of memory, redis, postgres, sqlite; got %q", c.StorageType)
	}
	return nil
}

// IsDevelopment returns true when running locally
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// SlogLevel returns the configured log level. Without LOG_LEVEL it is
// debug in development and info otherwise.
func (c *Config) SlogLevel() (slog.Level, error) {
	if c.LogLevel == "" {
		if c.IsDevelopment() {
			return slog.LevelDebug, nil
		}
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	return level, nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}
