package handlers

import (
	"net/http"
	"time"

	"github.com/Conceptual-Machines/magda-ensemble/internal/config"
	"github.com/Conceptual-Machines/magda-ensemble/internal/ensemble"
	"github.com/gin-gonic/gin"
)

// StatsHandler reports what this instance is serving and how its engine is
// tuned. Request and adaptation counters live on the Prometheus endpoint.
type StatsHandler struct {
	startTime time.Time
	version   string
	library   *ensemble.Library
	engine    EngineSettings
}

// EngineSettings is the effective adaptation configuration
type EngineSettings struct {
	MaxIterations          int     `json:"max_iterations"`
	AdaptTimeoutMS         int64   `json:"adapt_timeout_ms"`
	PhrasingToleranceBeats float64 `json:"phrasing_tolerance_beats"`
	TranspositionWindow    int     `json:"transposition_window"`
}

type StatsResponse struct {
	Version    string         `json:"version"`
	StartTime  string         `json:"start_time"`
	Uptime     string         `json:"uptime"`
	Ensembles  []string       `json:"ensembles"`
	Engine     EngineSettings `json:"engine"`
	Prometheus string         `json:"prometheus"`
}

// NewStatsHandler builds the handler. library may be nil.
func NewStatsHandler(cfg *config.Config, library *ensemble.Library, version string) *StatsHandler {
	timeout := cfg.AdaptTimeout
	if timeout <= 0 {
		timeout = defaultAdaptTimeout
	}
	return &StatsHandler{
		startTime: time.Now(),
		version:   version,
		library:   library,
		engine: EngineSettings{
			MaxIterations:          cfg.MaxIterations,
			AdaptTimeoutMS:         timeout.Milliseconds(),
			PhrasingToleranceBeats: cfg.PhrasingToleranceBeats,
			TranspositionWindow:    cfg.TranspositionWindow,
		},
	}
}

func (h *StatsHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Version:    h.version,
		StartTime:  h.startTime.UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startTime).Round(time.Millisecond).String(),
		Ensembles:  h.library.Names(),
		Engine:     h.engine,
		Prometheus: "/metrics",
	})
}
