package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce         sync.Once
	portalRequestsTotal  *prometheus.CounterVec
	portalLatencySeconds *prometheus.HistogramVec
	portalErrorsTotal    *prometheus.CounterVec
	fetchOutcomesTotal   *prometheus.CounterVec
	streamClientsActive  prometheus.Gauge
	sessionEventsTotal   *prometheus.CounterVec
	refreshEventsRelayed prometheus.Counter
	questionCacheLookups *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the portal.
func RegisterMetrics() {
	registerOnce.Do(func() {
		portalRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_requests_total",
			Help: "Total number of portal API requests served.",
		}, []string{"method", "route", "status"})

		portalLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_latency_seconds",
			Help:    "Latency distribution for portal API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		portalErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_errors_total",
			Help: "Total number of error responses returned by portal endpoints.",
		}, []string{"method", "route", "status"})

		fetchOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_fetch_outcomes_total",
			Help: "Fetch cycle resolutions by resource and outcome (success, error, stale).",
		}, []string{"resource", "outcome"})

		streamClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_stream_clients_active",
			Help: "Number of websocket clients following evaluation state.",
		})

		sessionEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_session_events_total",
			Help: "Session lifecycle transitions (login, logout, refresh, teardown).",
		}, []string{"event"})

		refreshEventsRelayed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_refresh_events_relayed_total",
			Help: "Evaluation refresh events received from other portal nodes.",
		})

		questionCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_question_cache_lookups_total",
			Help: "Question list cache lookups by result (hit, miss).",
		}, []string{"result"})

		prometheus.MustRegister(
			portalRequestsTotal,
			portalLatencySeconds,
			portalErrorsTotal,
			fetchOutcomesTotal,
			streamClientsActive,
			sessionEventsTotal,
			refreshEventsRelayed,
			questionCacheLookups,
		)
	})
}

// PortalRequests exposes the counter for portal requests.
func PortalRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return portalRequestsTotal
}

// PortalLatency exposes the latency histogram for portal requests.
func PortalLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return portalLatencySeconds
}

// PortalErrors exposes the counter for portal error responses.
func PortalErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return portalErrorsTotal
}

// FetchOutcomes exposes the fetch resolution counter.
func FetchOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return fetchOutcomesTotal
}

// StreamClientsActive exposes the websocket client gauge.
func StreamClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActive
}

// SessionEvents exposes the session lifecycle counter.
func SessionEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return sessionEventsTotal
}

// RefreshEventsRelayed exposes the cross-node relay counter.
func RefreshEventsRelayed() prometheus.Counter {
	RegisterMetrics()
	return refreshEventsRelayed
}

// QuestionCacheLookups exposes the question cache counter.
func QuestionCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return questionCacheLookups
}

// MetricsHandler serves the scrape endpoint. Portal collectors are
// registered on first use so the endpoint never races the middleware.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}
