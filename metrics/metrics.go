package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kbukum/voxkit/telemetry"
)

const namespace = "voxkit"

// Metrics owns a Prometheus registry with the HTTP and session instruments.
// It is a telemetry.Sink.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	stages          *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	fallbacks       *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
}

// New creates the instruments on a fresh registry. g supplies the gauges
// read at scrape time; a zero Gauges reports zeros.
func New(g Gauges) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "path_pattern", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_stages_total",
			Help:      "Session stages recorded, by type and provider.",
		}, []string{"stage", "provider"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time from a phase's start stage to its outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms → ~3.4min
		}, []string{"phase", "provider", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Switches to the default provider, by phase and target.",
		}, []string{"phase", "provider"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished sessions by status.",
		}, []string{"status"}),
		sessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Session duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.stages,
		m.stageDuration,
		m.fallbacks,
		m.sessions,
		m.sessionDuration,
		newCollector(g),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Emit records a telemetry event.
func (m *Metrics) Emit(_ context.Context, ev telemetry.Event) error {
	switch ev.Type {
	case telemetry.EventStage:
		st := ev.Stage
		m.stages.WithLabelValues(string(st.Type), st.ProviderID).Inc()
		if st.Type.IsFallback() {
			m.fallbacks.WithLabelValues(st.Type.Phase(), st.ProviderID).Inc()
		}
		if !st.Type.IsStart() && ev.Elapsed > 0 {
			m.stageDuration.WithLabelValues(st.Type.Phase(), st.ProviderID, outcome(st.Type)).Observe(ev.Elapsed.Seconds())
		}
	case telemetry.EventSessionCompleted, telemetry.EventSessionAbandoned:
		status := string(ev.Summary.Status)
		m.sessions.WithLabelValues(status).Inc()
		m.sessionDuration.WithLabelValues(status).Observe(ev.Summary.Duration.Seconds())
	}
	return nil
}

func outcome(t telemetry.StageType) string {
	s := string(t)
	return s[len(t.Phase())+1:]
}

// Middleware records request metrics. The route pattern is used as the path
// label to keep cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		pattern := c.FullPath()
		if pattern == "" {
			pattern = "unknown"
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(method, pattern, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(method, pattern).Observe(time.Since(start).Seconds())
	}
}
