package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	classificationsTotal *prometheus.CounterVec
	expertDispatchTotal  *prometheus.CounterVec
	toolInvocationsTotal *prometheus.CounterVec
	turnDuration         *prometheus.HistogramVec
	sessionsPrunedTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "concierge",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	classificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "routing",
			Name:      "classifications_total",
			Help:      "Total classified messages by category.",
		},
		[]string{"service", "category"},
	)
	expertDispatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "routing",
			Name:      "expert_dispatch_total",
			Help:      "Total requests dispatched to each expert.",
		},
		[]string{"service", "expert"},
	)
	toolInvocationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "expert",
			Name:      "tool_invocations_total",
			Help:      "Total tool invocations performed by experts.",
		},
		[]string{"service", "tool"},
	)
	turnDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "routing",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end handled turn duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "expert"},
	)
	sessionsPrunedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "sessions",
			Name:      "pruned_total",
			Help:      "Total expired sessions removed by the pruner.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		classificationsTotal,
		expertDispatchTotal,
		toolInvocationsTotal,
		turnDuration,
		sessionsPrunedTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		classificationsTotal: classificationsTotal,
		expertDispatchTotal:  expertDispatchTotal,
		toolInvocationsTotal: toolInvocationsTotal,
		turnDuration:         turnDuration,
		sessionsPrunedTotal:  sessionsPrunedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/sessions/"):
		return "/v1/sessions/{session_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordClassification(service, category string) {
	if category == "" {
		category = "unknown"
	}
	m.classificationsTotal.WithLabelValues(service, category).Inc()
}

func (m *HTTPServerMetrics) RecordTurn(service, expert string, toolsInvoked []string, duration time.Duration) {
	if expert == "" {
		expert = "unknown"
	}
	m.expertDispatchTotal.WithLabelValues(service, expert).Inc()
	m.turnDuration.WithLabelValues(service, expert).Observe(duration.Seconds())
	for _, tool := range toolsInvoked {
		m.toolInvocationsTotal.WithLabelValues(service, tool).Inc()
	}
}

func (m *HTTPServerMetrics) RecordSessionsPruned(service string, count int) {
	if count <= 0 {
		return
	}
	m.sessionsPrunedTotal.WithLabelValues(service).Add(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
