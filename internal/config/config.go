// Package config handles loading application configuration from environment variables.
// All settings have sensible defaults for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application settings loaded from environment variables.
type Config struct {
	Port                   string
	StatsBaseURL           string
	StatsAPIKey            string
	ChartTTL               time.Duration
	ChartMaxLimit          int
	ChartDefaultPeriodDays int
	RateLimitPerMinute     int
	CORSAllowedOrigins     []string
	TrustedProxies         []string
	SentryDSN              string
	SentryEnvironment      string
}

// Load reads configuration from environment variables, using defaults where not set.
func Load() *Config {
	return &Config{
		Port:                   getEnv("PORT", "8080"),
		StatsBaseURL:           getEnv("STATS_BASE_URL", "http://localhost:9090"),
		StatsAPIKey:            getEnv("STATS_API_KEY", ""),
		ChartTTL:               getDurationEnv("CHART_TTL", 60*time.Second),
		ChartMaxLimit:          getIntEnv("CHART_MAX_LIMIT", 100),
		ChartDefaultPeriodDays: getIntEnv("CHART_DEFAULT_PERIOD_DAYS", 30),
		RateLimitPerMinute:     getIntEnv("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins:     getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		TrustedProxies:         getStringSliceEnv("TRUSTED_PROXIES", nil),
		SentryDSN:              getEnv("SENTRY_DSN", ""),
		SentryEnvironment:      getEnv("SENTRY_ENVIRONMENT", "production"),
	}
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
