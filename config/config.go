package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPHost     string
	HTTPPort     string
	DatabasePath string
	LogLevel     string
	LogFormat    string

	// Defaults applied to newly created API keys when the caller
	// does not specify a limit.
	DefaultRateLimitPerMinute int

	RateLimitWindow          time.Duration
	RateLimitRetention       time.Duration
	RateLimitCleanupInterval time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	httpPort := getEnv("HTTP_PORT", "8080")
	if _, err := strconv.Atoi(httpPort); err != nil {
		return nil, fmt.Errorf("HTTP_PORT must be a valid port number, got %q", httpPort)
	}

	return &Config{
		HTTPHost:                  getEnv("HTTP_HOST", "127.0.0.1"),
		HTTPPort:                  httpPort,
		DatabasePath:              getEnv("DATABASE_PATH", "depin_orcha.db"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		LogFormat:                 getEnv("LOG_FORMAT", "text"),
		DefaultRateLimitPerMinute: getIntEnv("DEFAULT_RATE_LIMIT", 60),
		RateLimitWindow:           getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitRetention:        getDurationEnv("RATE_LIMIT_RETENTION", 24*time.Hour),
		RateLimitCleanupInterval:  getDurationEnv("RATE_LIMIT_CLEANUP_INTERVAL", time.Hour),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
