// Package metrics holds the Prometheus collectors for the Data Map service.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/cvsubs74/dm-consent/pkg/pii"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for integration operations, comments and classification.
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal    *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
	CommentsTotal      *prometheus.CounterVec
	SummariesTotal     *prometheus.CounterVec
	Classifications    *prometheus.CounterVec
	LLMLatency         *prometheus.HistogramVec
}

// New creates the collectors on a private registry so tests can build many.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dm_integration_operations_total",
			Help: "Total number of integration operations, labeled by operation and result",
		}, []string{"operation", "result"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dm_validation_failures_total",
			Help: "Total number of rejected integration inputs, labeled by operation",
		}, []string{"operation"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dm_active_sessions",
			Help: "Current number of sessions holding a Data Map",
		}),
		CommentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dm_comments_total",
			Help: "Total number of stored comments, labeled by category",
		}, []string{"category"}),
		SummariesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dm_summaries_total",
			Help: "Total number of summary requests, labeled by category and result",
		}, []string{"category", "result"}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dm_pii_classifications_total",
			Help: "Total number of PII classifications, labeled by category",
		}, []string{"category"}),
		LLMLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dm_llm_request_latency_seconds",
			Help:    "Latency of language model calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"purpose"}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOperation implements datamap.Observer
func (m *Metrics) ObserveOperation(op string, err error) {
	switch {
	case err == nil:
		m.OperationsTotal.WithLabelValues(op, "ok").Inc()
	case errors.As(err, new(*datamap.ValidationError)):
		m.OperationsTotal.WithLabelValues(op, "rejected").Inc()
		m.ValidationFailures.WithLabelValues(op).Inc()
	default:
		m.OperationsTotal.WithLabelValues(op, "error").Inc()
	}
}

// ObserveClassification implements pii.Observer
func (m *Metrics) ObserveClassification(c pii.Category) {
	m.Classifications.WithLabelValues(string(c)).Inc()
}

// IncrementComments counts a stored comment
func (m *Metrics) IncrementComments(category string) {
	m.CommentsTotal.WithLabelValues(category).Inc()
}

// ObserveSummary counts a summary request
func (m *Metrics) ObserveSummary(category string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SummariesTotal.WithLabelValues(category, result).Inc()
}

// ObserveLLM records how long a model call took
func (m *Metrics) ObserveLLM(purpose string, d time.Duration) {
	m.LLMLatency.WithLabelValues(purpose).Observe(d.Seconds())
}

// SetActiveSessions updates the session gauge
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}
