package api

import (
	"github.com/Conceptual-Machines/magda-ensemble/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/magda-ensemble/internal/api/middleware"
	"github.com/Conceptual-Machines/magda-ensemble/internal/config"
	"github.com/Conceptual-Machines/magda-ensemble/internal/ensemble"
	"github.com/Conceptual-Machines/magda-ensemble/internal/metrics"
	"github.com/gin-gonic/gin"
)

// SetupRouter wires the HTTP surface. library and cw may be nil.
func SetupRouter(cfg *config.Config, library *ensemble.Library, cw *metrics.Client, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(cw))

	healthHandler := handlers.NewHealthHandler(library)
	router.GET("/health", healthHandler.HealthCheck)

	statsHandler := handlers.NewStatsHandler(cfg, library, version)
	router.GET("/api/metrics", statsHandler.GetStats)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Auth is handled upstream; the engine holds no user state
	v1 := router.Group("/api/v1")
	{
		adaptHandler := handlers.NewAdaptHandler(cfg, library, cw)
		v1.POST("/adapt", adaptHandler.Adapt)
		v1.POST("/validate", adaptHandler.Validate)
		v1.GET("/ensembles", adaptHandler.ListEnsembles)
	}

	return router
}
