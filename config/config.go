package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Credentials
	Username  string
	AccessKey string

	// Provider
	APIURL          string        // default: https://saucelabs.com/rest/v1
	RequestInterval time.Duration // default: 100ms
	HTTPTimeout     time.Duration // default: 0 (no timeout)

	// Shared quota, disabled unless RedisAddr is set
	RedisAddr      string
	QuotaPerSecond int // default: 10

	// Observability
	LogLevel             string // default: "info"
	OTELExporterType     string // "none", "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Username:             os.Getenv("SAUCE_USERNAME"),
		AccessKey:            os.Getenv("SAUCE_ACCESS_KEY"),
		APIURL:               getEnv("SAUCE_API_URL", "https://saucelabs.com/rest/v1"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "none"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.RequestInterval, err = time.ParseDuration(getEnv("SAUCE_REQUEST_INTERVAL", "100ms")); err != nil {
		return nil, fmt.Errorf("invalid SAUCE_REQUEST_INTERVAL: %w", err)
	}
	if cfg.HTTPTimeout, err = time.ParseDuration(getEnv("SAUCE_HTTP_TIMEOUT", "0s")); err != nil {
		return nil, fmt.Errorf("invalid SAUCE_HTTP_TIMEOUT: %w", err)
	}
	if cfg.QuotaPerSecond, err = strconv.Atoi(getEnv("SAUCE_QUOTA_PER_SECOND", "10")); err != nil {
		return nil, fmt.Errorf("invalid SAUCE_QUOTA_PER_SECOND: %w", err)
	}

	// Validation
	if cfg.RequestInterval < 0 {
		return nil, fmt.Errorf("SAUCE_REQUEST_INTERVAL must not be negative")
	}
	if cfg.QuotaPerSecond <= 0 {
		return nil, fmt.Errorf("SAUCE_QUOTA_PER_SECOND must be positive")
	}
	switch cfg.OTELExporterType {
	case "none", "stdout", "otlp":
	default:
		return nil, fmt.Errorf("OTEL_EXPORTER_TYPE must be none, stdout or otlp, got %q", cfg.OTELExporterType)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
