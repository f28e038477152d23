// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	TrialsSimulated   *prometheus.CounterVec
	RunsInFlight      prometheus.Gauge
	LastSuccessfulRun prometheus.Gauge

	// External data metrics
	CacheLookups *prometheus.CounterVec
	CacheErrors  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates a Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewRegistryMetrics creates a Metrics instance backed by its own registry,
// for tests and for processes that run several servers.
func NewRegistryMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	return NewMetricsWithRegistry(namespace, registry, registry)
}

// NewMetricsWithRegistry creates a Metrics instance registered with reg.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	if namespace == "" {
		namespace = constants.MetricsNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "total",
			Help:      "Total number of simulation runs by decision type and status",
		}, []string{"decision_type", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Simulation run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"decision_type"}),
		TrialsSimulated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "trials_simulated_total",
			Help:      "Total number of Monte Carlo trials simulated",
		}, []string{"decision_type"}),
		RunsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "in_flight",
			Help:      "Number of simulation runs currently executing",
		}),
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful simulation run",
		}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "cache_lookups_total",
			Help:      "External data cache lookups by dataset and result",
		}, []string{"dataset", "result"}),
		CacheErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "cache_errors_total",
			Help:      "External data cache failures by operation",
		}, []string{"operation"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"operation"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),

		gatherer: gatherer,
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordRun records a finished simulation run.
func (m *Metrics) RecordRun(decisionType, status string, durationSeconds float64, trials int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(decisionType, status).Inc()
	m.RunDuration.WithLabelValues(decisionType).Observe(durationSeconds)
	if trials > 0 {
		m.TrialsSimulated.WithLabelValues(decisionType).Add(float64(trials))
	}
}

// RecordSuccess stamps the last successful run time.
func (m *Metrics) RecordSuccess(unixSeconds float64) {
	if m == nil {
		return
	}
	m.LastSuccessfulRun.Set(unixSeconds)
}

// RunStarted increments the in-flight gauge and returns its decrement.
func (m *Metrics) RunStarted() func() {
	if m == nil {
		return func() {}
	}
	m.RunsInFlight.Inc()
	return m.RunsInFlight.Dec
}

// CacheLookup records an external data cache hit or miss.
func (m *Metrics) CacheLookup(dataset string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(dataset, result).Inc()
}

// CacheError records a failed cache read or write.
func (m *Metrics) CacheError(operation string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(operation).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, httpCode(code)).Inc()
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
