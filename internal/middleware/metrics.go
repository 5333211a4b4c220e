// internal/middleware/metrics.go
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	refreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_refreshes_total",
			Help: "Total number of lead refreshes by outcome",
		},
		[]string{"result"},
	)

	fetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_fetch_errors_total",
			Help: "Total number of CRM fetch failures by classification",
		},
		[]string{"kind"},
	)

	leadsStatusCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "panopticon_leads_status_count",
			Help: "Leads per status tier as of the latest refresh",
		},
		[]string{"status"},
	)
)

// Metrics records request counts and latencies. The path label uses
// the route template, not the raw URL, to keep cardinality flat.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordRefresh counts one refresh outcome ("ok" or "failed").
func RecordRefresh(result string) {
	refreshesTotal.WithLabelValues(result).Inc()
}

// RecordFetchError counts one classified CRM failure.
func RecordFetchError(kind string) {
	fetchErrorsTotal.WithLabelValues(kind).Inc()
}

// SetStatusCounts publishes the tier counts of the latest refresh.
func SetStatusCounts(stale, atRisk, healthy int) {
	leadsStatusCount.WithLabelValues("stale").Set(float64(stale))
	leadsStatusCount.WithLabelValues("at_risk").Set(float64(atRisk))
	leadsStatusCount.WithLabelValues("healthy").Set(float64(healthy))
}

// RegisterDashboardConnections exposes the websocket client count as a
// gauge read on scrape. Call once at wiring time.
func RegisterDashboardConnections(count func() int) {
	promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "dashboard_websocket_connections",
			Help: "Number of connected dashboards",
		},
		func() float64 { return float64(count()) },
	)
}
