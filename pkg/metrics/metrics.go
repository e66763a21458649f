package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the fulfillment service metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Event delivery metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec
	OutboxEventsRelayed  *prometheus.CounterVec
	OutboxPending        prometheus.Gauge

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec

	// Business metrics
	OrderTransitions   *prometheus.CounterVec
	InboundTransitions *prometheus.CounterVec
	FeesBilled         *prometheus.CounterVec
	StockRejections    *prometheus.CounterVec
	LowStockAlerts     *prometheus.CounterVec
	LockWaitDuration   *prometheus.HistogramVec

	// Idempotency metrics
	IdempotencyRequests *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a registry with every collector registered
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   ns,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		},
		[]string{"service", "topic", "event_type", "status"},
	)

	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)

	m.OutboxEventsRelayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "outbox_events_relayed_total",
			Help:      "Outbox events handed to the broker",
		},
		[]string{"service", "status"},
	)

	m.OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   ns,
			Name:        "outbox_events_pending",
			Help:        "Outbox events waiting to be published in the last poll",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
		[]string{"service", "name"},
	)

	m.OrderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fulfillment_order_transitions_total",
			Help:      "Order lifecycle transitions by target status",
		},
		[]string{"service", "status"},
	)

	m.InboundTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fulfillment_inbound_transitions_total",
			Help:      "Inbound and outbound request transitions by type and target status",
		},
		[]string{"service", "type", "status"},
	)

	m.FeesBilled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fulfillment_fees_billed_total",
			Help:      "Sum of fees recorded, by fee kind",
		},
		[]string{"service", "kind"},
	)

	m.StockRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fulfillment_stock_rejections_total",
			Help:      "Operations rejected for insufficient stock",
		},
		[]string{"service", "operation"},
	)

	m.LowStockAlerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fulfillment_low_stock_alerts_total",
			Help:      "Decrements that left stock at or below the minimum level",
		},
		[]string{"service"},
	)

	m.LockWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "fulfillment_lock_wait_seconds",
			Help:      "Time spent acquiring entity and ledger locks",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"service", "status"},
	)

	m.IdempotencyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "idempotency_requests_total",
			Help:      "Requests carrying an Idempotency-Key, by outcome",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.OutboxEventsRelayed,
		m.OutboxPending,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
		m.OrderTransitions,
		m.InboundTransitions,
		m.FeesBilled,
		m.StockRejections,
		m.LowStockAlerts,
		m.LockWaitDuration,
		m.IdempotencyRequests,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordKafkaPublish records a Kafka publish attempt
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordOutboxRelay records the outcome of relaying one outbox event
func (m *Metrics) RecordOutboxRelay(success bool) {
	m.OutboxEventsRelayed.WithLabelValues(m.serviceName, statusLabel(success)).Inc()
}

// SetOutboxPending sets the number of events awaiting relay
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

// RecordOrderTransition records an order reaching a status
func (m *Metrics) RecordOrderTransition(status string) {
	m.OrderTransitions.WithLabelValues(m.serviceName, status).Inc()
}

// RecordInboundTransition records a request reaching a status
func (m *Metrics) RecordInboundTransition(requestType, status string) {
	m.InboundTransitions.WithLabelValues(m.serviceName, requestType, status).Inc()
}

// RecordFeeBilled adds a billed amount for a fee kind
func (m *Metrics) RecordFeeBilled(kind string, amount float64) {
	if amount <= 0 {
		return
	}
	m.FeesBilled.WithLabelValues(m.serviceName, kind).Add(amount)
}

// RecordStockRejection records an operation refused for insufficient stock
func (m *Metrics) RecordStockRejection(operation string) {
	m.StockRejections.WithLabelValues(m.serviceName, operation).Inc()
}

// RecordLowStockAlerts records low-stock signals
func (m *Metrics) RecordLowStockAlerts(count int) {
	if count <= 0 {
		return
	}
	m.LowStockAlerts.WithLabelValues(m.serviceName).Add(float64(count))
}

// ObserveLockWait records how long lock acquisition took
func (m *Metrics) ObserveLockWait(success bool, duration time.Duration) {
	m.LockWaitDuration.WithLabelValues(m.serviceName, statusLabel(success)).Observe(duration.Seconds())
}

// RecordIdempotency records how a keyed request was handled (miss, hit, mismatch, conflict, error)
func (m *Metrics) RecordIdempotency(outcome string) {
	m.IdempotencyRequests.WithLabelValues(m.serviceName, outcome).Inc()
}
