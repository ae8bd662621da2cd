// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ledgerbook/pkg/logger"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds every setting the server, worker and CLI read.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	StorageDriver string
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	MigrateOnBoot bool

	// RedisAddr enables the cross-process business lock when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration
	LockWait      time.Duration

	IdempotencyEnabled bool
	IdempotencyTTL     time.Duration

	NumberingCached bool

	IntentStaleAfter time.Duration
	WorkerInterval   time.Duration
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		Port:     getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		DBMaxConns:    int32(getEnvInt("DB_MAX_CONNS", 20)),
		DBMinConns:    int32(getEnvInt("DB_MIN_CONNS", 2)),
		MigrateOnBoot: getEnvBool("DB_MIGRATE", true),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		LockTTL:       getEnvDuration("LOCK_TTL", 30*time.Second),
		LockWait:      getEnvDuration("LOCK_WAIT", 5*time.Second),

		IdempotencyEnabled: getEnvBool("IDEMPOTENCY_ENABLED", true),
		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		NumberingCached: getEnvBool("NUMBERING_CACHED", false),

		IntentStaleAfter: getEnvDuration("INTENT_STALE_AFTER", 5*time.Minute),
		WorkerInterval:   getEnvDuration("WORKER_INTERVAL", time.Minute),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverMemory, DriverPostgres, c.StorageDriver)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	if c.IntentStaleAfter <= 0 || c.WorkerInterval <= 0 {
		return fmt.Errorf("INTENT_STALE_AFTER and WORKER_INTERVAL must be positive")
	}
	return nil
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.LogLevel,
		Development: c.IsDevelopment(),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
