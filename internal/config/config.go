// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database settings. An empty URL disables the record store: the service
	// runs in demo mode and serves synthetic data only.
	DatabaseURL string

	// Redis settings. An empty URL disables the dashboard response cache.
	RedisURL          string
	DashboardCacheTTL time.Duration

	// Ingest auth. Argon2id-encoded hash of the ingest API key; empty
	// disables POST /v1/records entirely.
	IngestKeyHash string

	// Dashboard window settings, in hours.
	DefaultWindowHours int
	MaxWindowHours     int

	// Rate limiting for /v1 endpoints, per client IP.
	RateLimitPerSecond float64
	RateLimitBurst     int

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		ServiceName: envStr("OTEL_SERVICE_NAME", "kanshi"),
		LogLevel:    envStr("KANSHI_LOG_LEVEL", "info"),
		DatabaseURL: envStr("KANSHI_DATABASE_URL", ""),
		RedisURL:    envStr("KANSHI_REDIS_URL", ""),
		OTELEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		IngestKeyHash: envStr("KANSHI_INGEST_KEY_HASH", ""),
	}

	var err error
	if cfg.Port, err = envInt("KANSHI_PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.ReadTimeout, err = envDuration("KANSHI_READ_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.WriteTimeout, err = envDuration("KANSHI_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DashboardCacheTTL, err = envDuration("KANSHI_DASHBOARD_CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DefaultWindowHours, err = envInt("KANSHI_DEFAULT_WINDOW_HOURS", 24); err != nil {
		return Config{}, err
	}
	if cfg.MaxWindowHours, err = envInt("KANSHI_MAX_WINDOW_HOURS", 168); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerSecond, err = envFloat("KANSHI_RATE_LIMIT_PER_SECOND", 10); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = envInt("KANSHI_RATE_LIMIT_BURST", 30); err != nil {
		return Config{}, err
	}
	if cfg.OTELInsecure, err = envBool("OTEL_EXPORTER_OTLP_INSECURE", false); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks internal consistency of the configuration.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: KANSHI_PORT must be in [1, 65535], got %d", c.Port)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("config: server timeouts must be positive")
	}
	if c.DefaultWindowHours < 1 {
		return fmt.Errorf("config: KANSHI_DEFAULT_WINDOW_HOURS must be positive, got %d", c.DefaultWindowHours)
	}
	if c.MaxWindowHours < c.DefaultWindowHours {
		return fmt.Errorf("config: KANSHI_MAX_WINDOW_HOURS (%d) must be at least the default window (%d)",
			c.MaxWindowHours, c.DefaultWindowHours)
	}
	if c.RateLimitPerSecond <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("config: rate limit must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
