package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	requestsProcessedTotal *prometheus.CounterVec
	messagesSentTotal      *prometheus.CounterVec
	notificationsTotal     *prometheus.CounterVec
	streamClientsGauge     *prometheus.GaugeVec
)

// RegisterMetrics initialises the Prometheus collectors used by the contact API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_api_requests_total",
			Help: "Total number of contact API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contact_api_latency_seconds",
			Help:    "Latency distribution for contact API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_api_errors_total",
			Help: "Total number of error responses returned by contact API endpoints.",
		}, []string{"method", "route", "status"})

		requestsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_requests_processed_total",
			Help: "Contact request lifecycle events by outcome.",
		}, []string{"outcome"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_messages_sent_total",
			Help: "Direct messages processed by outcome or message type.",
		}, []string{"outcome"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_notifications_dispatched_total",
			Help: "Notifications dispatched by type and delivery status.",
		}, []string{"type", "status"})

		streamClientsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "contact_stream_clients_active",
			Help: "Currently connected streaming clients by transport.",
		}, []string{"transport"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			requestsProcessedTotal,
			messagesSentTotal,
			notificationsTotal,
			streamClientsGauge,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// RequestsProcessed exposes the contact request lifecycle counter.
func RequestsProcessed() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsProcessedTotal
}

// MessagesSent exposes the direct message counter.
func MessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// NotificationsDispatched exposes the notification delivery counter.
func NotificationsDispatched() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// StreamClientsActive exposes the connected streaming client gauge.
func StreamClientsActive() *prometheus.GaugeVec {
	RegisterMetrics()
	return streamClientsGauge
}
