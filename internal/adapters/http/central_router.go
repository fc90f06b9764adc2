package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/openroads/roadpass/internal/pkg/metrics"
)

// SetupCoordinatorRoutes registers the coordinator's REST, GraphQL, and
// WebSocket routes. The booking paths live at the root so existing clients
// keep working; operational endpoints sit under /v1.
func SetupCoordinatorRoutes(app *fiber.App, deps *Dependencies, sagaTimeout time.Duration) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler())
	app.Get("/v1/ready", ReadyHandler(deps.DB, deps.NATS, deps.Cache))

	// Booking saga. The submit timeout must cover the slowest region's whole
	// reserve phase plus the broadcast, so it comes from config rather than
	// the 15s default the read paths get.
	app.Post("/send_request", timeout.NewWithContext(SendRequestHandler(deps), sagaTimeout))
	app.Get("/booking_status/:booking_id", timeout.NewWithContext(BookingStatusHandler(deps), 15*time.Second))
	app.Get("/get_segments/:booking_id", timeout.NewWithContext(BookingSegmentsHandler(deps), 60*time.Second))
	app.Post("/cancel_booking/:booking_id", timeout.NewWithContext(CancelBookingHandler(deps), 60*time.Second))
	app.Get("/bookings", timeout.NewWithContext(ListBookingsHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
