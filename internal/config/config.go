package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
// Note: The service is stateless - scores and ensembles arrive with each request
// or come from the ensemble library file; nothing is persisted.
type Config struct {
	// Environment
	Environment string
	Port        string
	LogLevel    string

	// Observability
	SentryDSN string // Sentry DSN for error tracking

	// Ensemble library (YAML), optional
	EnsembleConfigPath string

	// Adaptation engine
	MaxIterations          int           // Re-validation passes before giving up
	AdaptTimeout           time.Duration // Per-request deadline for the adaptation loop
	PhrasingToleranceBeats float64       // Largest onset shift, in beats, the timing resolver may apply
	TranspositionWindow    int           // Semitones searched in each direction by the pitch resolver
}

const (
	defaultMaxIterations          = 8
	defaultAdaptTimeoutMS         = 5000
	defaultPhrasingToleranceBeats = 0.25
	defaultTranspositionWindow    = 24
)

func Load() *Config {
	return &Config{
		Environment:            getEnv("ENVIRONMENT", "development"),
		Port:                   getEnv("PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		SentryDSN:              getEnv("SENTRY_DSN", ""),
		EnsembleConfigPath:     getEnv("ENSEMBLE_CONFIG", ""),
		MaxIterations:          getEnvInt("ADAPT_MAX_ITERATIONS", defaultMaxIterations),
		AdaptTimeout:           time.Duration(getEnvInt("ADAPT_TIMEOUT_MS", defaultAdaptTimeoutMS)) * time.Millisecond,
		PhrasingToleranceBeats: getEnvFloat("ADAPT_PHRASING_TOLERANCE_BEATS", defaultPhrasingToleranceBeats),
		TranspositionWindow:    getEnvInt("ADAPT_TRANSPOSITION_WINDOW", defaultTranspositionWindow),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// IsProduction returns true when running in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDebug returns true when debug logging was requested
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}
