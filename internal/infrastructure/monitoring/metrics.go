package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ingestion metrics
	EventsTotal    *prometheus.CounterVec
	IngestErrors   *prometheus.CounterVec
	EntitiesMapped prometheus.Counter
	LineageChains  prometheus.Gauge
	Series         prometheus.Gauge
	BufferDepth    prometheus.Gauge
	Flushes        prometheus.Counter

	// Operation metrics
	OperationDuration *prometheus.HistogramVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveConnections int64   `json:"active_connections"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector registered on reg. A nil reg uses
// a fresh private registry, which keeps parallel tests from colliding.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_events_total",
				Help: "Total number of telemetry events ingested",
			},
			[]string{"type"},
		),
		IngestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_ingest_errors_total",
				Help: "Total number of ingestion errors",
			},
			[]string{"kind"},
		),
		EntitiesMapped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "telemetry_entities_mapped_total",
				Help: "Total number of graph entities mapped from spans",
			},
		),
		LineageChains: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "telemetry_lineage_chains",
				Help: "Number of lineage chains held",
			},
		),
		Series: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "telemetry_series",
				Help: "Number of metric time series held",
			},
		),
		BufferDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "telemetry_buffer_depth",
				Help: "Number of events waiting in the ingest buffer",
			},
		),
		Flushes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "telemetry_flushes_total",
				Help: "Total number of buffer flushes",
			},
		),

		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telemetry_operation_duration_seconds",
				Help:    "Duration of correlation and graph operations in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"operation", "status"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telemetry_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telemetry_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telemetry_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "telemetry_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "telemetry_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordEvent counts one ingested event of the given type
func (m *Metrics) RecordEvent(eventType string) {
	m.EventsTotal.WithLabelValues(eventType).Inc()
}

// RecordIngestError counts one ingestion failure
func (m *Metrics) RecordIngestError(kind string) {
	m.IngestErrors.WithLabelValues(kind).Inc()
}

// AddEntitiesMapped counts mapped graph entities
func (m *Metrics) AddEntitiesMapped(n int) {
	m.EntitiesMapped.Add(float64(n))
}

// SetLineageChains sets the number of chains held
func (m *Metrics) SetLineageChains(n int) {
	m.LineageChains.Set(float64(n))
}

// SetSeries sets the number of series held
func (m *Metrics) SetSeries(n int) {
	m.Series.Set(float64(n))
}

// SetBufferDepth sets the number of buffered events
func (m *Metrics) SetBufferDepth(n int) {
	m.BufferDepth.Set(float64(n))
}

// IncFlushes counts one buffer flush
func (m *Metrics) IncFlushes() {
	m.Flushes.Inc()
}

// RecordOperation records the duration of an engine operation
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	m.OperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgDurationMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
