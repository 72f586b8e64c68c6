package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mediahub/backend/internal/models"
	"github.com/mediahub/backend/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const metricsNamespace = "mediahub"

// MetricsHandler exposes Prometheus metrics from its own registry.
type MetricsHandler struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewMetricsHandler(db *gorm.DB, hub *services.AuthEventHub) *MetricsHandler {
	startTime := time.Now()
	reg := prometheus.NewRegistry()

	h := &MetricsHandler{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		h.requests,
		h.latency,
		gaugeFunc("uptime_seconds", "Time since server start in seconds", func() float64 {
			return time.Since(startTime).Seconds()
		}),
		gaugeFunc("auth_event_listeners", "Active auth event subscriptions", func() float64 {
			return float64(hub.ListenerCount())
		}),
		gaugeFunc("db_open_connections", "Number of open DB connections", func() float64 {
			sqlDB, err := db.DB()
			if err != nil {
				return 0
			}
			return float64(sqlDB.Stats().OpenConnections)
		}),
		gaugeFunc("media_total", "Catalog size", countRows(db, &models.Media{})),
		gaugeFunc("reviews_total", "Stored reviews", countRows(db, &models.Review{})),
		gaugeFunc("profiles_total", "Stored user profiles", countRows(db, &models.Profile{})),
	)
	return h
}

func gaugeFunc(name, help string, fn func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      help,
	}, fn)
}

func countRows(db *gorm.DB, model interface{}) func() float64 {
	return func() float64 {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			return 0
		}
		return float64(n)
	}
}

// Instrument records request counts and latency per route pattern.
func (h *MetricsHandler) Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		h.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		h.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Metrics returns Prometheus text format metrics.
// GET /metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}
