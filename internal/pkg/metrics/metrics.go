package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpass",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadpass",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadpass",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Booking saga metrics
	BookingsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpass",
		Subsystem: "booking",
		Name:      "submitted_total",
		Help:      "Total booking requests processed, by final outcome",
	}, []string{"outcome"})

	ReserveCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpass",
		Subsystem: "booking",
		Name:      "reserve_calls_total",
		Help:      "Total reservation calls dispatched to regions",
	}, []string{"region", "outcome"})

	CompensationBroadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpass",
		Subsystem: "booking",
		Name:      "broadcasts_total",
		Help:      "Total confirm/cancel broadcasts sent to involved regions",
	}, []string{"action"})

	SagaDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "roadpass",
		Subsystem: "booking",
		Name:      "saga_duration_seconds",
		Help:      "End-to-end duration of a booking saga",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// Regional admission metrics
	ReservationsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roadpass",
		Subsystem: "region",
		Name:      "reservations_accepted_total",
		Help:      "Total local reservations admitted",
	})

	ReservationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpass",
		Subsystem: "region",
		Name:      "reservations_rejected_total",
		Help:      "Total local reservations rejected",
	}, []string{"reason"})

	SegmentsMatched = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "roadpass",
		Subsystem: "region",
		Name:      "segments_matched",
		Help:      "Road segments matched per reservation request",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roadpass",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpass",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpass",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
