package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the engine.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	syncsTotal           *prometheus.CounterVec
	syncDuration         prometheus.Histogram
	fetchResponsesTotal  *prometheus.CounterVec
	authExhaustedTotal   prometheus.Counter
	transferUpdatesTotal *prometheus.CounterVec
	notificationsDropped prometheus.Counter
}

// NewMetrics initialises the registry and the engine's base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "partsync_http_requests_total",
		Help: "HTTP requests served by the console API, by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "partsync_http_request_duration_seconds",
		Help:    "Console API request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "partsync_syncs_total",
		Help: "Inventory sync runs by result.",
	}, []string{"result"})
	syncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "partsync_sync_duration_seconds",
		Help:    "Duration of inventory sync runs.",
		Buckets: prometheus.DefBuckets,
	})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "partsync_fetch_responses_total",
		Help: "Transfer list fetch responses by classification.",
	}, []string{"class"})
	authExhausted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "partsync_auth_retry_exhausted_total",
		Help: "Terminal auth failures after the credential retry budget.",
	})
	transferUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "partsync_transfer_updates_total",
		Help: "Transfer complete/cancel mutations by action and result.",
	}, []string{"action", "result"})
	notificationsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "partsync_notifications_dropped_total",
		Help: "Notifications evicted by the capacity bound before expiry.",
	})
	registry.MustRegister(requests, duration, syncs, syncDuration, fetches, authExhausted, transferUpdates, notificationsDropped)
	return &Metrics{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:        requests,
		requestDuration:      duration,
		syncsTotal:           syncs,
		syncDuration:         syncDuration,
		fetchResponsesTotal:  fetches,
		authExhaustedTotal:   authExhausted,
		transferUpdatesTotal: transferUpdates,
		notificationsDropped: notificationsDropped,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveSync records one sync run.
func (m *Metrics) ObserveSync(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncsTotal.WithLabelValues(result).Inc()
	m.syncDuration.Observe(elapsed.Seconds())
}

// IncFetchResponse counts one classified transfer fetch response.
func (m *Metrics) IncFetchResponse(class string) {
	if m == nil {
		return
	}
	m.fetchResponsesTotal.WithLabelValues(class).Inc()
}

// IncAuthExhausted counts one terminal auth failure.
func (m *Metrics) IncAuthExhausted() {
	if m == nil {
		return
	}
	m.authExhaustedTotal.Inc()
}

// IncTransferUpdate counts one transfer mutation attempt.
func (m *Metrics) IncTransferUpdate(action, result string) {
	if m == nil {
		return
	}
	m.transferUpdatesTotal.WithLabelValues(action, result).Inc()
}

// AddNotificationsDropped counts notifications evicted by the capacity bound.
func (m *Metrics) AddNotificationsDropped(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.notificationsDropped.Add(float64(count))
}

// Middleware records request metrics for the console API.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
