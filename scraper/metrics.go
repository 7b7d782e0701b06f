package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RowsTotal       prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	SkippedTotal    *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geometrics_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geometrics_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
	rows := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geometrics_rows_total",
			Help: "Total number of variant rows sent to the pipeline.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geometrics_retries_total",
			Help: "Total number of API retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geometrics_errors_total",
			Help: "Total number of request errors by type.",
		},
		[]string{"error_type"},
	)
	skipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geometrics_bikes_skipped_total",
			Help: "Bikes skipped without contributing rows, by reason.",
		},
		[]string{"reason"},
	)

	registry.MustRegister(requests, requestDuration, rows, retries, errorsTotal, skipped)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		RowsTotal:       rows,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		SkippedTotal:    skipped,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// AddRows increments the rows counter.
func (m *Metrics) AddRows(n int) {
	if m == nil {
		return
	}
	m.RowsTotal.Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncSkipped increments the skipped counter for a reason.
func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.SkippedTotal.WithLabelValues(reason).Inc()
}
