package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the tracker service
type Metrics struct {
	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Webhook Metrics
	webhookCallbacksTotal *prometheus.CounterVec

	// Cleanup Metrics
	cleanupRunsTotal          *prometheus.CounterVec
	cleanupDeletedTotal       prometheus.Counter
	cleanupRemoteDeletedTotal prometheus.Counter
	cleanupDuration           prometheus.Histogram

	// Upsert Metrics
	fileUpsertsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: prometheus.Labels{"service": serviceName},
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),
		webhookCallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "webhook_callbacks_total",
				Help:        "Total number of webhook callbacks by outcome",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"hook", "outcome"},
		),
		cleanupRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "cleanup_runs_total",
				Help:        "Total number of cleanup invocations by outcome",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"outcome"},
		),
		cleanupDeletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "cleanup_deleted_records_total",
				Help:        "Total number of local records deleted by cleanup",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),
		cleanupRemoteDeletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "cleanup_remote_deleted_files_total",
				Help:        "Total number of files deleted from the remote upload service",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),
		cleanupDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "cleanup_duration_seconds",
				Help:        "Duration of cleanup invocations",
				ConstLabels: prometheus.Labels{"service": serviceName},
				Buckets:     []float64{0.1, 0.5, 1, 5, 10, 30},
			},
		),
		fileUpsertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "file_upserts_total",
				Help:        "Total number of file upserts by kind (insert or replace)",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"kind"},
		),
	}
}

// RecordHTTPRequest records one finished HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// RecordWebhookCallback records one webhook callback outcome
// outcome is "ok" or the failure tag
func (m *Metrics) RecordWebhookCallback(hook, outcome string) {
	m.webhookCallbacksTotal.WithLabelValues(hook, outcome).Inc()
}

// RecordCleanupRun records one cleanup invocation
func (m *Metrics) RecordCleanupRun(outcome string, deleted, remoteDeleted int, duration time.Duration) {
	m.cleanupRunsTotal.WithLabelValues(outcome).Inc()
	m.cleanupDeletedTotal.Add(float64(deleted))
	m.cleanupRemoteDeletedTotal.Add(float64(remoteDeleted))
	m.cleanupDuration.Observe(duration.Seconds())
}

// RecordFileUpsert records one upsert, kind is "insert" or "replace"
func (m *Metrics) RecordFileUpsert(kind string) {
	m.fileUpsertsTotal.WithLabelValues(kind).Inc()
}
