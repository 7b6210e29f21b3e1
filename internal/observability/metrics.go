package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway"

// Metrics holds the prometheus collectors of the gateway. Each instance owns
// its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rejections      *prometheus.CounterVec
	latencyExceeded *prometheus.CounterVec
	tokensIssued    *prometheus.CounterVec
	tokensRevoked   prometheus.Counter
	authEvents      *prometheus.CounterVec
}

// NewMetrics initializes and registers collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "End-to-end request handling time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth", Name: "rejections_total",
			Help: "Requests rejected by the guard pipeline, by reason.",
		}, []string{"reason"}),
		latencyExceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "latency_exceeded_total",
			Help: "Requests converted to server errors for exceeding the latency budget.",
		}, []string{"route"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth", Name: "tokens_issued_total",
			Help: "Issued session tokens by kind.",
		}, []string{"kind"}),
		tokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth", Name: "tokens_revoked_total",
			Help: "Tokens added to the revocation registry.",
		}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth", Name: "events_total",
			Help: "Audit events by type.",
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.rejections,
		m.latencyExceeded,
		m.tokensIssued,
		m.tokensRevoked,
		m.authEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordRequest observes one finished request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRejection counts a guard rejection.
func (m *Metrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// RecordLatencyExceeded counts a request that blew the latency budget.
func (m *Metrics) RecordLatencyExceeded(route string) {
	if m == nil {
		return
	}
	m.latencyExceeded.WithLabelValues(route).Inc()
}

// RecordTokenIssued counts an issued token.
func (m *Metrics) RecordTokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

// RecordTokenRevoked counts a revocation.
func (m *Metrics) RecordTokenRevoked() {
	if m == nil {
		return
	}
	m.tokensRevoked.Inc()
}

// RecordAuthEvent counts an audit event.
func (m *Metrics) RecordAuthEvent(eventType string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(eventType).Inc()
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
