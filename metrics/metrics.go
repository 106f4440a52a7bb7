package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	papersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "papertrail_papers_created_total",
			Help: "Total number of papers created through the API.",
		},
	)
	paperMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papertrail_paper_mutations_total",
			Help: "Audited paper mutations by action type.",
		},
		[]string{"action"},
	)
	papersPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "papertrail_papers_purged_total",
			Help: "Soft-deleted papers permanently removed by the trash purge job.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papertrail_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "papertrail_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(papersCreated, paperMutations, papersPurged, httpRequests, httpDuration)
}

// PaperCreated zählt ein neu angelegtes Paper.
func PaperCreated() {
	papersCreated.Inc()
}

// Mutation zählt eine erfolgreiche, auditierte Änderung.
func Mutation(action string) {
	paperMutations.WithLabelValues(action).Inc()
}

// Purged zählt endgültig gelöschte Paper des Purge-Jobs.
func Purged(n int) {
	papersPurged.Add(float64(n))
}

// Middleware erfasst Anzahl und Dauer aller Anfragen.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler liefert den Prometheus-Endpunkt.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
