package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the Prometheus metrics registry.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// SetDefaults fills in zero-valued fields.
func (c *MetricsConfig) SetDefaults() {
	if c.Namespace == "" {
		c.Namespace = "dashboard"
	}
}

// Metrics collects Prometheus metrics for trace ingestion, event
// distribution, and the HTTP/websocket surface.
type Metrics struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	spansReceived    *prometheus.CounterVec
	spansDropped     *prometheus.CounterVec
	eventsEmitted    *prometheus.CounterVec
	ingestDuration   *prometheus.HistogramVec

	eventsPublished    *prometheus.CounterVec
	publishFanoutSize  prometheus.Histogram
	subscribersActive  prometheus.Gauge

	wsConnections  *prometheus.CounterVec
	wsDisconnects  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics builds a Metrics instance, or (nil, nil) when disabled: every
// Record*/Set* method on a nil *Metrics is a safe no-op, and Handler
// returns nil.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()

	m := &Metrics{config: cfg, registry: prometheus.NewRegistry()}
	m.initIngestMetrics()
	m.initDistributionMetrics()
	m.initWebsocketMetrics()
	m.initHTTPMetrics()
	return m, nil
}

func (m *Metrics) initIngestMetrics() {
	m.spansReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "ingest", Name: "spans_received_total",
		Help: "Total spans received via /v1/traces.",
	}, []string{"content_type"})

	m.spansDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "ingest", Name: "spans_dropped_total",
		Help: "Spans dropped during classification (not a recognized communication event).",
	}, []string{"reason"})

	m.eventsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "ingest", Name: "events_emitted_total",
		Help: "Communication events built from ingested spans, by event type.",
	}, []string{"event_type"})

	m.ingestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "ingest", Name: "request_duration_seconds",
		Help:    "Duration of /v1/traces export request processing.",
		Buckets: prometheus.DefBuckets,
	}, []string{"content_type"})

	m.registry.MustRegister(m.spansReceived, m.spansDropped, m.eventsEmitted, m.ingestDuration)
}

func (m *Metrics) initDistributionMetrics() {
	m.eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "distributor", Name: "events_published_total",
		Help: "Events handed to the distributor for fan-out, by event type.",
	}, []string{"event_type"})

	m.publishFanoutSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "distributor", Name: "fanout_subscribers",
		Help:    "Number of subscribers an event matched at publish time.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	m.subscribersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.config.Namespace, Subsystem: "distributor", Name: "subscribers_active",
		Help: "Current number of live websocket subscribers.",
	})

	m.registry.MustRegister(m.eventsPublished, m.publishFanoutSize, m.subscribersActive)
}

func (m *Metrics) initWebsocketMetrics() {
	m.wsConnections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "websocket", Name: "connections_total",
		Help: "Total websocket connections accepted.",
	}, []string{})

	m.wsDisconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "websocket", Name: "disconnects_total",
		Help: "Total websocket disconnects, by close reason.",
	}, []string{"reason"})

	m.registry.MustRegister(m.wsConnections, m.wsDisconnects)
}

func (m *Metrics) initHTTPMetrics() {
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "http", Name: "requests_total",
		Help: "Total HTTP requests, by method, route, and status text.",
	}, []string{"method", "route", "status"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request duration, by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.registry.MustRegister(m.httpRequests, m.httpDuration)
}

// RecordSpanReceived records count spans received with the given request
// content type. count is the number of spans in the export request, not the
// number of requests: one /v1/traces POST carries many spans.
func (m *Metrics) RecordSpanReceived(contentType string, count int) {
	if m == nil {
		return
	}
	m.spansReceived.WithLabelValues(contentType).Add(float64(count))
}

// RecordSpanDropped records count spans dropped for the given reason (one
// of otlp.DropReason* or "unbuildable").
func (m *Metrics) RecordSpanDropped(reason string, count int) {
	if m == nil {
		return
	}
	m.spansDropped.WithLabelValues(reason).Add(float64(count))
}

func (m *Metrics) RecordEventEmitted(eventType string) {
	if m == nil {
		return
	}
	m.eventsEmitted.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordIngestDuration(contentType string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ingestDuration.WithLabelValues(contentType).Observe(duration.Seconds())
}

func (m *Metrics) RecordPublish(eventType string, fanoutSize int) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
	m.publishFanoutSize.Observe(float64(fanoutSize))
}

func (m *Metrics) SetSubscribersActive(count int) {
	if m == nil {
		return
	}
	m.subscribersActive.Set(float64(count))
}

func (m *Metrics) RecordWSConnection() {
	if m == nil {
		return
	}
	m.wsConnections.WithLabelValues().Inc()
}

func (m *Metrics) RecordWSDisconnect(reason string) {
	if m == nil {
		return
	}
	m.wsDisconnects.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	status := http.StatusText(statusCode)
	if status == "" {
		status = "unknown"
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape endpoint, or nil if metrics are
// disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
