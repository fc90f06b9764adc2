package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/openroads/roadpass/internal/pkg/metrics"
)

// SetupRegionRoutes registers a regional manager's routes. No rate limiter
// here: the only caller is the coordinator.
func SetupRegionRoutes(app *fiber.App, deps *RegionDependencies, reserveTimeout time.Duration) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	app.Get("/v1/health", HealthHandler())
	app.Get("/v1/ready", ReadyHandler(deps.DB, nil, nil))

	// Admission can hold row locks while a competing chunk settles, so it
	// gets the long reserve timeout; the rest are quick.
	app.Post("/process_segment", timeout.NewWithContext(ProcessSegmentHandler(deps), reserveTimeout))
	app.Post("/confirm_booking", timeout.NewWithContext(ConfirmBookingHandler(deps), 30*time.Second))
	app.Post("/cancel_booking", timeout.NewWithContext(RegionCancelHandler(deps), 30*time.Second))
	app.Get("/get_segments/:booking_id", timeout.NewWithContext(RegionSegmentsHandler(deps), 15*time.Second))
}
