package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/magda-ensemble/internal/config"
	"github.com/Conceptual-Machines/magda-ensemble/internal/engine"
	"github.com/Conceptual-Machines/magda-ensemble/internal/ensemble"
	"github.com/Conceptual-Machines/magda-ensemble/internal/logger"
	"github.com/Conceptual-Machines/magda-ensemble/internal/metrics"
	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdaptHandler serves the adaptation and validation endpoints
type AdaptHandler struct {
	engine     *engine.Engine
	engineOpts engine.Options
	library    *ensemble.Library
	timeout    time.Duration
	cloudwatch *metrics.Client
	sentry     *metrics.SentryMetrics
}

// NewAdaptHandler builds the handler from the service configuration.
// library and cw may be nil.
func NewAdaptHandler(cfg *config.Config, library *ensemble.Library, cw *metrics.Client) *AdaptHandler {
	opts := EngineOptions(cfg)
	timeout := cfg.AdaptTimeout
	if timeout <= 0 {
		timeout = defaultAdaptTimeout
	}
	return &AdaptHandler{
		engine:     engine.New(opts),
		engineOpts: opts,
		library:    library,
		timeout:    timeout,
		cloudwatch: cw,
		sentry:     metrics.NewSentryMetrics(),
	}
}

// EngineOptions maps service configuration onto engine options
func EngineOptions(cfg *config.Config) engine.Options {
	opts := engine.Options{MaxIterations: cfg.MaxIterations}
	opts.Resolver.PhrasingToleranceBeats = cfg.PhrasingToleranceBeats
	opts.Resolver.TranspositionWindow = cfg.TranspositionWindow
	return opts
}

// AdaptRequest carries a score and either an inline ensemble or the name of
// one from the loaded library
type AdaptRequest struct {
	Score         *models.MusicalScore `json:"score" binding:"required"`
	Ensemble      *ensemble.Document   `json:"ensemble,omitempty"`
	EnsembleName  string               `json:"ensemble_name,omitempty"`
	MaxIterations int                  `json:"max_iterations,omitempty"`
}

type AdaptResponse struct {
	RunID        string                 `json:"run_id"`
	Ensemble     string                 `json:"ensemble"`
	AdaptedScore models.MusicalScore    `json:"adapted_score"`
	Report       models.ViolationReport `json:"report"`
	Plan         models.ResolutionPlan  `json:"plan"`
	Iterations   []engine.Iteration     `json:"iterations"`
	StopReason   engine.StopReason      `json:"stop_reason"`
	DurationMS   int64                  `json:"duration_ms"`
}

type ValidateResponse struct {
	RunID    string                 `json:"run_id"`
	Ensemble string                 `json:"ensemble"`
	Report   models.ViolationReport `json:"report"`
}

type EnsemblesResponse struct {
	Ensembles []string `json:"ensembles"`
}

// Adapt runs the adaptation loop on the posted score
func (h *AdaptHandler) Adapt(c *gin.Context) {
	req, cfg, ok := h.bind(c)
	if !ok {
		return
	}

	runID := uuid.New().String()
	c.Set("run_id", runID)

	eng := h.engine
	if req.MaxIterations > 0 && req.MaxIterations <= maxRequestIterations {
		opts := h.engineOpts
		opts.MaxIterations = req.MaxIterations
		eng = engine.New(opts)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := eng.Adapt(ctx, *req.Score, cfg)
	if err != nil {
		h.fail(c, "Adaptation failed", err, cfg.Name)
		return
	}

	summary := metrics.Adaptation{
		Ensemble:      metricsEnsemble(req, cfg),
		StopReason:    string(result.StopReason),
		Iterations:    len(result.Iterations),
		Actions:       len(result.Plan.Actions),
		Remaining:     result.Plan.PredictedRemaining,
		Critical:      result.Report.Counts[models.SeverityCritical],
		TotalCost:     result.Plan.TotalCost,
		Playability:   result.Report.Playability,
		FullyPlayable: result.Report.FullyPlayable,
		Duration:      result.Duration,
	}
	h.sentry.RecordAdaptation(c.Request.Context(), summary)
	h.cloudwatch.RecordAdaptation(summary)
	metrics.ObserveAdaptation(summary)

	fields := logger.WithContext(c)
	fields["notes_in"] = len(req.Score.Notes)
	fields["notes_out"] = len(result.Score.Notes)
	fields["iterations"] = summary.Iterations
	fields["actions"] = summary.Actions
	fields["stop_reason"] = summary.StopReason
	fields["playability"] = summary.Playability
	logger.LogAdaptation(c.Request.Context(), cfg.Name, result.Duration, fields)

	if !result.Report.FullyPlayable {
		fields["critical"] = summary.Critical
		logger.LogToSentry(sentry.LevelWarning, "Adaptation left critical violations", fields)
	}

	c.JSON(http.StatusOK, AdaptResponse{
		RunID:        runID,
		Ensemble:     cfg.Name,
		AdaptedScore: result.Score,
		Report:       result.Report,
		Plan:         result.Plan,
		Iterations:   result.Iterations,
		StopReason:   result.StopReason,
		DurationMS:   result.Duration.Milliseconds(),
	})
}

// Validate reports the violations of the posted score without adapting it
func (h *AdaptHandler) Validate(c *gin.Context) {
	req, cfg, ok := h.bind(c)
	if !ok {
		return
	}

	runID := uuid.New().String()
	c.Set("run_id", runID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	report, err := h.engine.Validate(ctx, *req.Score, cfg)
	if err != nil {
		h.fail(c, "Validation failed", err, cfg.Name)
		return
	}

	c.JSON(http.StatusOK, ValidateResponse{
		RunID:    runID,
		Ensemble: cfg.Name,
		Report:   report,
	})
}

// ListEnsembles returns the names of the library ensembles
func (h *AdaptHandler) ListEnsembles(c *gin.Context) {
	c.JSON(http.StatusOK, EnsemblesResponse{Ensembles: h.library.Names()})
}

// bind decodes the request and resolves its ensemble, writing the error
// response itself when it returns false
func (h *AdaptHandler) bind(c *gin.Context) (AdaptRequest, models.EnsembleConfiguration, bool) {
	var req AdaptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, models.EnsembleConfiguration{}, false
	}

	cfg, err := h.resolveEnsemble(req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errUnknownEnsemble) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return req, models.EnsembleConfiguration{}, false
	}
	return req, cfg, true
}

var errUnknownEnsemble = errors.New("unknown ensemble")

func (h *AdaptHandler) resolveEnsemble(req AdaptRequest) (models.EnsembleConfiguration, error) {
	switch {
	case req.Ensemble != nil && req.EnsembleName != "":
		return models.EnsembleConfiguration{}, fmt.Errorf("%w: set either ensemble or ensemble_name, not both", models.ErrInvalidInput)
	case req.Ensemble != nil:
		return req.Ensemble.Build()
	case req.EnsembleName != "":
		cfg, ok := h.library.Get(req.EnsembleName)
		if !ok {
			return models.EnsembleConfiguration{}, fmt.Errorf("%w: %s", errUnknownEnsemble, req.EnsembleName)
		}
		return cfg, nil
	default:
		return models.EnsembleConfiguration{}, fmt.Errorf("%w: ensemble or ensemble_name is required", models.ErrInvalidInput)
	}
}

// inlineEnsembleLabel stands in for client-chosen ensemble names on metric
// labels and dimensions
const inlineEnsembleLabel = "inline"

// metricsEnsemble names the ensemble for metrics: the library name, or a
// fixed label for inline documents
func metricsEnsemble(req AdaptRequest, cfg models.EnsembleConfiguration) string {
	if req.Ensemble != nil {
		return inlineEnsembleLabel
	}
	return cfg.Name
}

func (h *AdaptHandler) fail(c *gin.Context, msg string, err error, ensembleName string) {
	fields := logger.WithContext(c)
	fields["ensemble"] = ensembleName

	if errors.Is(err, models.ErrInvalidInput) {
		logger.Warn(msg, fields)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.Error(msg, err, fields)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":      "Internal server error",
		"request_id": c.GetString("request_id"),
	})
}
