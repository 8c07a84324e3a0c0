package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the API process.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	shareResolutions *prometheus.CounterVec
	paymentEvents    *prometheus.CounterVec
	thresholdStates  *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and domain collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facturly_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "facturly_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facturly_share_resolutions_total",
		Help: "Share resolutions by outcome.",
	}, []string{"outcome"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facturly_payment_events_total",
		Help: "Payment webhook events by outcome.",
	}, []string{"outcome"})
	thresholds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facturly_threshold_classifications_total",
		Help: "VAT threshold classifications by state.",
	}, []string{"state"})
	registry.MustRegister(requests, duration, resolutions, payments, thresholds)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		shareResolutions: resolutions,
		paymentEvents:    payments,
		thresholdStates:  thresholds,
	}
}

// Handler returns the http.Handler serving /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records a request count and duration per route pattern.
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

// ObserveShareResolution counts a share resolution outcome.
func (m *Metrics) ObserveShareResolution(outcome string) {
	if m == nil {
		return
	}
	m.shareResolutions.WithLabelValues(outcome).Inc()
}

// ObservePaymentEvent counts a payment webhook outcome.
func (m *Metrics) ObservePaymentEvent(outcome string) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(outcome).Inc()
}

// ObserveThreshold counts a threshold classification.
func (m *Metrics) ObserveThreshold(state string) {
	if m == nil {
		return
	}
	m.thresholdStates.WithLabelValues(state).Inc()
}

// Registerer exposes the registry for additional collectors.
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
