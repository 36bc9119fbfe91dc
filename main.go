package main

import (
	"context"
	"log"
	"time"

	"github.com/Conceptual-Machines/magda-ensemble/internal/api"
	"github.com/Conceptual-Machines/magda-ensemble/internal/config"
	"github.com/Conceptual-Machines/magda-ensemble/internal/ensemble"
	"github.com/Conceptual-Machines/magda-ensemble/internal/logger"
	"github.com/Conceptual-Machines/magda-ensemble/internal/metrics"
	"github.com/Conceptual-Machines/magda-ensemble/pkg/embedded"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger.SetDebug(cfg.IsDebug())

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "magda-ensemble@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            cfg.Environment != environmentProduction,
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	// Requests can always carry an inline ensemble; the library only backs ensemble_name
	library, source, err := loadLibrary(cfg.EnsembleConfigPath)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to load ensemble library:", err)
	}
	log.Printf("🎼 Loaded %d ensembles from %s", len(library.Names()), source)

	cw, err := metrics.NewClient(context.Background(), cfg.Environment)
	if err != nil {
		log.Printf("Failed to initialize CloudWatch metrics: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(cfg, library, cw, GetVersion())

	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

func loadLibrary(path string) (*ensemble.Library, string, error) {
	if path == "" {
		lib, err := ensemble.Parse(embedded.EnsemblesYAML)
		return lib, "embedded defaults", err
	}
	lib, err := ensemble.LoadFile(path)
	return lib, path, err
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
