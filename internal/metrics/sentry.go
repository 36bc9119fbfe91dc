package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// Adaptation summarizes one adaptation run for the metrics backends
type Adaptation struct {
	Ensemble      string
	StopReason    string
	Iterations    int
	Actions       int
	Remaining     int
	Critical      int
	TotalCost     float64
	Playability   float64
	FullyPlayable bool
	Duration      time.Duration
}

// SentryMetrics handles custom metrics for Sentry
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // Always enabled if Sentry is configured
	}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	// Create a span for API request tracking using the request context
	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))

	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("endpoint", endpoint)
	span.SetData("status_code", statusCode)

	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordAdaptation attaches the outcome of an adaptation run to the current transaction
func (m *SentryMetrics) RecordAdaptation(ctx context.Context, a Adaptation) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("adapt.ensemble", a.Ensemble)
		transaction.SetTag("adapt.stop_reason", a.StopReason)
		transaction.SetTag("adapt.fully_playable", fmt.Sprintf("%t", a.FullyPlayable))
	}

	span := sentry.StartSpan(ctx, "adapt.result")
	defer span.Finish()

	span.SetTag("ensemble", a.Ensemble)
	span.SetTag("stop_reason", a.StopReason)

	span.SetData("iterations", a.Iterations)
	span.SetData("actions", a.Actions)
	span.SetData("remaining_violations", a.Remaining)
	span.SetData("critical_violations", a.Critical)
	span.SetData("total_cost", a.TotalCost)
	span.SetData("playability", a.Playability)
	span.SetData("duration_ms", a.Duration.Milliseconds())

	// unresolved criticals are a degraded result, not a failed request
	if a.FullyPlayable {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusFailedPrecondition
	}
	span.Description = fmt.Sprintf("Adaptation: %s", a.Ensemble)
}
