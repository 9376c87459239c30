package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SessionOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_session_operations_total",
			Help: "Session operations by name and outcome",
		},
		[]string{"operation", "outcome"},
	)

	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_session_transitions_total",
			Help: "Session state transitions (started, paused, auto_paused, resumed, auto_resumed, submitted, auto_submitted, abandoned)",
		},
		[]string{"transition"},
	)

	LockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_session_lock_wait_seconds",
			Help:    "Time spent waiting for the per-session lock",
			Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 2},
		},
	)

	QuizCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_definition_cache_lookups_total",
			Help: "Quiz definition cache lookups by result",
		},
		[]string{"result"},
	)

	WorkerFlushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_worker_rows_flushed_total",
			Help: "Rows written by write-behind workers",
		},
		[]string{"worker"},
	)
)

var initOnce sync.Once

// Init registers every collector with the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SessionOperations,
			SessionTransitions,
			LockWait,
			QuizCacheLookups,
			WorkerFlushed,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
