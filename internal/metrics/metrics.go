package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the HTTP surface and the
// scrape pipeline.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	pipelineRuns    *prometheus.CounterVec
	pipelineSeconds prometheus.Histogram
	fetchTotal      *prometheus.CounterVec
}

// New registers the application collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	pipelineRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "Pipeline invocations by terminal state",
	}, []string{"state"})

	pipelineSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_duration_seconds",
		Help:    "End-to-end pipeline duration in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	fetchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "court_fetches_total",
		Help: "Court page fetches by transport",
	}, []string{"via"})

	registry.MustRegister(requestTotal, requestDuration, pipelineRuns, pipelineSeconds, fetchTotal)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		pipelineRuns:    pipelineRuns,
		pipelineSeconds: pipelineSeconds,
		fetchTotal:      fetchTotal,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(m.handler)
}

// GinMiddleware records request counts and latencies per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requestTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}

// ObservePipeline records one pipeline run's terminal state and duration.
func (m *Metrics) ObservePipeline(state string, d time.Duration) {
	m.pipelineRuns.WithLabelValues(state).Inc()
	m.pipelineSeconds.Observe(d.Seconds())
}

// ObserveFetch counts a successful court fetch by transport ("http" or
// "browser").
func (m *Metrics) ObserveFetch(via string) {
	m.fetchTotal.WithLabelValues(via).Inc()
}
