package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brainstormd_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brainstormd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Dialogue metrics
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brainstormd_turns_total",
			Help: "Total number of dialogue turns by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	generatorCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brainstormd_generator_call_duration_seconds",
			Help:    "Idea generator call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "status"},
	)

	openSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "brainstormd_open_sessions",
			Help: "Number of open brainstorming sessions",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers the Prometheus metrics.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			turnsTotal,
			generatorCallDuration,
			openSessions,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTurn records a dialogue turn by intent and outcome.
func RecordTurn(intent, outcome string) {
	turnsTotal.WithLabelValues(intent, outcome).Inc()
}

// RecordGeneratorCall records an idea generator call.
func RecordGeneratorCall(provider, status string, duration time.Duration) {
	generatorCallDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// SessionOpened increments the open sessions gauge.
func SessionOpened() {
	openSessions.Inc()
}

// SessionClosed decrements the open sessions gauge.
func SessionClosed() {
	openSessions.Dec()
}
