package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels applied to every metric family.
type Config struct {
	ServiceName string
	Environment string
}

func (c Config) constLabels() prometheus.Labels {
	serviceName := strings.TrimSpace(c.ServiceName)
	if serviceName == "" {
		serviceName = "fleetsla"
	}
	environment := strings.TrimSpace(c.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

// Metrics exposes application-level Prometheus instruments.
type Metrics struct {
	slaEvaluations   *prometheus.CounterVec
	scenarioRankings *prometheus.CounterVec
	reports          *prometheus.CounterVec
	mailDeliveries   *prometheus.CounterVec
	logins           *prometheus.CounterVec
}

// New registers and returns the application metrics.
func New(cfg Config) *Metrics {
	return newMetrics(prometheus.DefaultRegisterer, cfg)
}

func newMetrics(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	slaEvaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "fleetsla_evaluations_total",
		Help:        "Maintenance stay evaluations by service type and resulting status.",
		ConstLabels: constLabels,
	}, []string{"service_type", "status"})

	scenarioRankings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "fleetsla_scenario_rankings_total",
		Help:        "Scenario set rankings by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	reports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "fleetsla_reports_generated_total",
		Help:        "Generated report artifacts by format.",
		ConstLabels: constLabels,
	}, []string{"format"})

	mailDeliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "fleetsla_mail_deliveries_total",
		Help:        "Outbound mail deliveries by template and status.",
		ConstLabels: constLabels,
	}, []string{"template", "status"})

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "fleetsla_logins_total",
		Help:        "Login attempts by result.",
		ConstLabels: constLabels,
	}, []string{"result"})

	registerer.MustRegister(
		slaEvaluations,
		scenarioRankings,
		reports,
		mailDeliveries,
		logins,
	)

	return &Metrics{
		slaEvaluations:   slaEvaluations,
		scenarioRankings: scenarioRankings,
		reports:          reports,
		mailDeliveries:   mailDeliveries,
		logins:           logins,
	}
}

// RecordEvaluation counts one stay evaluation.
func (m *Metrics) RecordEvaluation(serviceType, status string) {
	if m == nil {
		return
	}
	m.slaEvaluations.WithLabelValues(sanitizeLabel(serviceType), sanitizeLabel(status)).Inc()
}

// RecordScenarioRanking counts one scenario set ranking by outcome.
func (m *Metrics) RecordScenarioRanking(outcome string) {
	if m == nil {
		return
	}
	m.scenarioRankings.WithLabelValues(sanitizeLabel(outcome)).Inc()
}

// RecordReport counts one generated report artifact.
func (m *Metrics) RecordReport(format string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(sanitizeLabel(format)).Inc()
}

// RecordMailDelivery counts one outbound mail attempt.
func (m *Metrics) RecordMailDelivery(template, status string) {
	if m == nil {
		return
	}
	m.mailDeliveries.WithLabelValues(sanitizeLabel(template), sanitizeLabel(status)).Inc()
}

// RecordLogin counts one login attempt by result.
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(sanitizeLabel(result)).Inc()
}

// HTTPMetrics instruments inbound HTTP traffic.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics registers and returns HTTP server metrics.
func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) *HTTPMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "fleetsla_http_requests_total",
		Help:        "HTTP requests by method, route and status code.",
		ConstLabels: constLabels,
	}, []string{"method", "route", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "fleetsla_http_request_duration_seconds",
		Help:        "HTTP request latency by method and route.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"method", "route"})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "fleetsla_http_requests_in_flight",
		Help:        "HTTP requests currently being served.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(requests, duration, inFlight)

	return &HTTPMetrics{
		requests: requests,
		duration: duration,
		inFlight: inFlight,
	}
}

// GinMiddleware records request counts, latency and in-flight gauge per route.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.inFlight.Inc()
		c.Next()
		m.inFlight.Dec()

		route := strings.TrimSpace(c.FullPath())
		if route == "" {
			// Unmatched paths share one label to keep cardinality bounded.
			route = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		m.requests.WithLabelValues(method, route, status).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func sanitizeLabel(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return "unknown"
	}
	return val
}
