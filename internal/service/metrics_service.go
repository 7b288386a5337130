package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the document store and the outbound integrations.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec
	storeFailures   *prometheus.CounterVec
	chatRequests    *prometheus.CounterVec
	chatDuration    prometheus.Histogram
	codesIssued     prometheus.Counter
	codeDeliveries  *prometheus.CounterVec
	sessionsOpened  prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_store_operation_seconds",
		Help:    "Duration of document store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	storeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_store_operation_failures_total",
		Help: "Document store operations that returned an error",
	}, []string{"operation"})

	chatRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_chat_requests_total",
		Help: "Assistant requests by outcome",
	}, []string{"outcome"})

	chatDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_chat_upstream_seconds",
		Help:    "Latency of the generative-language upstream",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})

	codesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_one_time_codes_issued_total",
		Help: "One-time codes issued",
	})

	codeDeliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_one_time_code_deliveries_total",
		Help: "One-time code deliveries by outcome",
	}, []string{"outcome"})

	sessionsOpened := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_sessions_opened_total",
		Help: "Sessions opened by any sign-in method",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, storeDuration, storeFailures, chatRequests, chatDuration,
		codesIssued, codeDeliveries, sessionsOpened, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		storeDuration:   storeDuration,
		storeFailures:   storeFailures,
		chatRequests:    chatRequests,
		chatDuration:    chatDuration,
		codesIssued:     codesIssued,
		codeDeliveries:  codeDeliveries,
		sessionsOpened:  sessionsOpened,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveStoreOperation records one store operation.
func (m *MetricsService) ObserveStoreOperation(op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		m.storeFailures.WithLabelValues(op).Inc()
	}
}

// ObserveChat records an assistant request outcome and upstream latency.
func (m *MetricsService) ObserveChat(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.chatRequests.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.chatDuration.Observe(duration.Seconds())
	}
}

// CodeIssued counts a new one-time code.
func (m *MetricsService) CodeIssued() {
	if m == nil {
		return
	}
	m.codesIssued.Inc()
}

// CodeDelivered counts a delivery attempt outcome.
func (m *MetricsService) CodeDelivered(err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.codeDeliveries.WithLabelValues(outcome).Inc()
}

// SessionOpened counts a new session.
func (m *MetricsService) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsOpened.Inc()
}
