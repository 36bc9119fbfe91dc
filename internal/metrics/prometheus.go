package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// adaptationTotal counts adaptation runs by ensemble and stop reason
	adaptationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ensemble_adaptation_total",
		Help: "Total adaptation runs by ensemble and stop reason",
	}, []string{"ensemble", "stop_reason"})

	// adaptationDuration tracks end-to-end adaptation latency
	adaptationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ensemble_adaptation_duration_seconds",
		Help:    "Adaptation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	}, []string{"ensemble"})

	// adaptationIterations tracks re-validation passes per run
	adaptationIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ensemble_adaptation_iterations",
		Help:    "Re-validation passes per adaptation run",
		Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12, 16},
	})

	// adaptationActions tracks accepted resolution actions per run
	adaptationActions = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ensemble_adaptation_actions",
		Help:    "Resolution actions applied per adaptation run",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
	})

	// adaptationUnplayable counts runs that left critical violations
	adaptationUnplayable = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ensemble_adaptation_unplayable_total",
		Help: "Adaptation runs that ended with critical violations",
	}, []string{"ensemble"})

	// apiRequests counts HTTP requests by route and status
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ensemble_api_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "status"})

	// apiLatency tracks HTTP request latency by route
	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ensemble_api_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// ObserveAdaptation records an adaptation run in the Prometheus registry
func ObserveAdaptation(a Adaptation) {
	adaptationTotal.WithLabelValues(a.Ensemble, a.StopReason).Inc()
	adaptationDuration.WithLabelValues(a.Ensemble).Observe(a.Duration.Seconds())
	adaptationIterations.Observe(float64(a.Iterations))
	adaptationActions.Observe(float64(a.Actions))
	if !a.FullyPlayable {
		adaptationUnplayable.WithLabelValues(a.Ensemble).Inc()
	}
}

// ObserveAPIRequest records an HTTP request in the Prometheus registry
func ObserveAPIRequest(route string, statusCode int, duration time.Duration) {
	apiRequests.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	apiLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler serves the default Prometheus registry
func Handler() http.Handler {
	return promhttp.Handler()
}
