package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Recommendation metrics
	RecommendationRequestsTotal *prometheus.CounterVec
	RecommendationVerdicts      *prometheus.CounterVec

	// Agent metrics
	AgentDuration    *prometheus.HistogramVec
	AgentErrorsTotal *prometheus.CounterVec
	AgentIterations  *prometheus.HistogramVec
	ToolCallsTotal   *prometheus.CounterVec

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

// iterationBuckets cover model turns per episode
var iterationBuckets = []float64{1, 2, 3, 4, 5, 7, 10, 15}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		RecommendationRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_agent",
				Subsystem: "recommendation",
				Name:      "requests_total",
				Help:      "Total number of recommendation requests",
			},
			[]string{"model"},
		),
		RecommendationVerdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_agent",
				Subsystem: "recommendation",
				Name:      "verdicts_total",
				Help:      "Total number of recommendations by detected verdict",
			},
			[]string{"verdict"},
		),

		AgentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_agent",
				Subsystem: "agent",
				Name:      "duration_seconds",
				Help:      "Duration of agent episodes in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"status"},
		),
		AgentErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_agent",
				Subsystem: "agent",
				Name:      "errors_total",
				Help:      "Total number of failed agent episodes",
			},
			[]string{"error_type"},
		),
		AgentIterations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_agent",
				Subsystem: "agent",
				Name:      "iterations",
				Help:      "Model turns per agent episode",
				Buckets:   iterationBuckets,
			},
			[]string{"outcome"},
		),
		ToolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_agent",
				Subsystem: "agent",
				Name:      "tool_calls_total",
				Help:      "Total number of tool invocations requested by the model",
			},
			[]string{"tool", "outcome"},
		),

		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_agent",
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_agent",
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_agent",
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_agent",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_agent",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_agent",
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "stock_agent",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_agent",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordRecommendationRequest records a recommendation request for a model
func (m *Metrics) RecordRecommendationRequest(model string) {
	m.RecommendationRequestsTotal.WithLabelValues(model).Inc()
}

// RecordVerdict records the verdict detected in a final answer
func (m *Metrics) RecordVerdict(verdict string) {
	m.RecommendationVerdicts.WithLabelValues(verdict).Inc()
}

// RecordAgentDuration records the duration of an agent episode
func (m *Metrics) RecordAgentDuration(status string, duration time.Duration) {
	m.AgentDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordAgentError records a failed agent episode
func (m *Metrics) RecordAgentError(errorType string) {
	m.AgentErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordAgentIterations records how many model turns an episode used
func (m *Metrics) RecordAgentIterations(outcome string, iterations int) {
	m.AgentIterations.WithLabelValues(outcome).Observe(float64(iterations))
}

// RecordToolCall records a tool invocation and its outcome
func (m *Metrics) RecordToolCall(tool, outcome string) {
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveAgent records the agent episode duration
func (t *Timer) ObserveAgent(status string) {
	t.metrics.RecordAgentDuration(status, time.Since(t.start))
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
