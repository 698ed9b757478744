// Package metrics exposes the Prometheus collectors shared by the engine, the
// reputation clients and the HTTP adapter.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_scans_total",
		Help: "Total scans by input mode and classification.",
	}, []string{"mode", "classification"})

	scanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phishguard_scan_duration_seconds",
		Help:    "End-to-end scan duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	collectorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phishguard_collector_duration_seconds",
		Help:    "Signal collector duration in seconds.",
		Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"collector"})

	collectorDegradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_collector_degraded_total",
		Help: "Collector runs that fell back to a non-authoritative result.",
	}, []string{"collector"})

	intelFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_intel_fallback_total",
		Help: "Reputation lookups answered by the local heuristic, by service and cause.",
	}, []string{"service", "cause"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_http_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phishguard_http_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// RecordScan records a finished scan.
func RecordScan(mode, classification string, elapsed time.Duration) {
	scansTotal.WithLabelValues(mode, classification).Inc()
	scanDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// RecordCollector records one collector run.
func RecordCollector(id string, elapsed time.Duration, degraded bool) {
	collectorDuration.WithLabelValues(id).Observe(elapsed.Seconds())
	if degraded {
		collectorDegradedTotal.WithLabelValues(id).Inc()
	}
}

// RecordIntelFallback records a reputation lookup served by its heuristic.
func RecordIntelFallback(service, cause string) {
	intelFallbackTotal.WithLabelValues(service, cause).Inc()
}

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler returns a Gin handler that serves Prometheus metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
