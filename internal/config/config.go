package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/darkodi/shortlinks/internal/logger"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Shortcode ShortcodeConfig
	Sweep     SweepConfig
	Redis     RedisConfig
	App       AppConfig
	Log       logger.Config
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// StoreConfig selects where links and click history live
type StoreConfig struct {
	Backend string // "memory", "sqlite"
	Path    string // sqlite DSN
}

// ShortcodeConfig controls generated codes and link validity
type ShortcodeConfig struct {
	Length          int
	MaxAttempts     int
	DefaultValidity time.Duration
}

// SweepConfig controls the background removal of expired links.
// A zero Interval disables the sweep.
type SweepConfig struct {
	Interval time.Duration
	Grace    time.Duration
}

// RedisConfig holds the click stream settings. An empty Addr disables publishing.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	Stream         string
	StreamMaxLen   int64
	DialTimeout    time.Duration
	Timeout        time.Duration
	PublishTimeout time.Duration // per click, on the redirect path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	BaseURL     string
	Environment string // "development", "production", "testing"
	CORSOrigin  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "5000"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "memory"),
			Path:    getEnv("DB_PATH", ":memory:"),
		},
		Shortcode: ShortcodeConfig{
			Length:          getIntEnv("SHORTCODE_LENGTH", 6),
			MaxAttempts:     getIntEnv("SHORTCODE_MAX_ATTEMPTS", 10),
			DefaultValidity: time.Duration(getIntEnv("DEFAULT_VALIDITY_MINUTES", 30)) * time.Minute,
		},
		Sweep: SweepConfig{
			Interval: getDurationEnv("SWEEP_INTERVAL", 0),
			Grace:    getDurationEnv("SWEEP_GRACE", time.Hour),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getIntEnv("REDIS_DB", 0),
			Stream:         getEnv("REDIS_STREAM", "clicks"),
			StreamMaxLen:   int64(getIntEnv("REDIS_STREAM_MAXLEN", 100000)),
			DialTimeout:    getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			Timeout:        getDurationEnv("REDIS_TIMEOUT", 3*time.Second),
			PublishTimeout: getDurationEnv("REDIS_PUBLISH_TIMEOUT", 250*time.Millisecond),
		},
		App: AppConfig{
			BaseURL:     getEnv("BASE_URL", ""),
			Environment: getEnv("ENVIRONMENT", "development"),
			CORSOrigin:  getEnv("CORS_ALLOWED_ORIGIN", "*"),
		},
		Log: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Server.Port)
	}
	cfg.Log.Environment = cfg.App.Environment

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var (
	environments = []string{"development", "production", "testing"}
	logLevels    = []string{"debug", "info", "warn", "error"}
)

// Validate reports every problem with the configuration at once
func (c *Config) Validate() error {
	var errs []error

	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %s (must be 1-65535)", c.Server.Port))
	}

	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("database path cannot be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store backend: %s (must be memory or sqlite)", c.Store.Backend))
	}

	if c.Shortcode.Length < 1 || c.Shortcode.Length > 32 {
		errs = append(errs, fmt.Errorf("invalid shortcode length: %d (must be 1-32)", c.Shortcode.Length))
	}
	if c.Shortcode.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("invalid shortcode max attempts: %d", c.Shortcode.MaxAttempts))
	}
	if c.Shortcode.DefaultValidity <= 0 {
		errs = append(errs, errors.New("default validity must be positive"))
	}

	if c.Sweep.Interval < 0 || c.Sweep.Grace < 0 {
		errs = append(errs, errors.New("sweep interval and grace cannot be negative"))
	}

	if c.RedisEnabled() && c.Redis.Stream == "" {
		errs = append(errs, errors.New("redis stream name cannot be empty"))
	}

	if !slices.Contains(environments, c.App.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %s (must be development, production, or testing)", c.App.Environment))
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Log.Level))
	}

	return errors.Join(errs...)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// RedisEnabled reports whether click events go to Redis
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// ============================================================
// HELPER FUNCTIONS
// ============================================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}
