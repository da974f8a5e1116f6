package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_received_total",
			Help: "Total number of decoded events read from the firehose (count)",
		},
		[]string{"event_type"},
	)

	EventsForwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_forwarded_total",
			Help: "Total number of records written to downstream clients (count)",
		},
		[]string{"event_type"},
	)

	EventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_dropped_total",
			Help: "Total number of events dropped, labelled by filter stage or overflow (count)",
		},
		[]string{"reason"},
	)

	MalformedLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_malformed_lines_total",
			Help: "Total number of upstream lines that failed to decode (count)",
		},
	)

	BytesRelayedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_bytes_total",
			Help: "Total bytes moved through the relay (bytes)",
		},
		[]string{"direction"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_active_sessions",
			Help: "Number of downstream sessions currently streaming (count)",
		},
	)

	SessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_sessions_total",
			Help: "Total number of sessions by terminal outcome (count)",
		},
		[]string{"outcome"},
	)

	SessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_session_duration_seconds",
			Help:    "Lifetime of relay sessions in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 14400},
		},
	)

	QueueDepth = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_queue_depth",
			Help:    "Pending output queue length sampled at each drain (count)",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)

	QueueWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_queue_wait_duration_ms",
			Help:    "Time records wait in the output queue before being written in milliseconds",
			Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000, 5000, 30000},
		},
	)

	UpstreamConnectDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_upstream_connect_duration_ms",
			Help:    "Time to receive upstream response headers in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"status"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"operation"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of session requests checked against rate limit (count)",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// RegisterRelayMetrics registers every collector with the default registry. Safe to call more than once.
func RegisterRelayMetrics() {
	registerOnce.Do(func() {
		MustRegister(prometheus.DefaultRegisterer)
	})
}

func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		EventsReceivedTotal,
		EventsForwardedTotal,
		EventsDroppedTotal,
		MalformedLinesTotal,
		BytesRelayedTotal,
		ActiveSessions,
		SessionsTotal,
		SessionDuration,
		QueueDepth,
		QueueWaitDuration,
		UpstreamConnectDuration,
		RetryAttemptsTotal,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
		RateLimitRequestsTotal,
	)
}

func IncEventsReceived(eventType string) {
	EventsReceivedTotal.WithLabelValues(labelOrUnknown(eventType)).Inc()
}

func IncEventsForwarded(eventType string) {
	EventsForwardedTotal.WithLabelValues(labelOrUnknown(eventType)).Inc()
}

func IncEventsDropped(reason string) {
	EventsDroppedTotal.WithLabelValues(reason).Inc()
}

func IncMalformedLines() {
	MalformedLinesTotal.Inc()
}

func AddBytes(direction string, n int) {
	BytesRelayedTotal.WithLabelValues(direction).Add(float64(n))
}

func ObserveSession(outcome string, duration time.Duration) {
	SessionsTotal.WithLabelValues(outcome).Inc()
	SessionDuration.Observe(duration.Seconds())
}

func ObserveQueueDepth(depth int) {
	QueueDepth.Observe(float64(depth))
}

func ObserveQueueWait(duration time.Duration) {
	QueueWaitDuration.Observe(float64(duration.Milliseconds()))
}

func ObserveUpstreamConnect(status string, duration time.Duration) {
	UpstreamConnectDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncRetryAttempt(operation string) {
	RetryAttemptsTotal.WithLabelValues(operation).Inc()
}

// Event types come from upstream data; anything unexpected is folded to keep label cardinality bounded.
func labelOrUnknown(eventType string) string {
	if eventType == "" || len(eventType) > 64 {
		return "unknown"
	}
	return eventType
}
