package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/openroads/roadpass/internal/core/domain"
)

// The regional endpoints answer in the {"status","message"} shape the
// coordinator echoes verbatim into its saga results, so these handlers do not
// use the APIError envelope.

type bookingIDRequest struct {
	BookingID string `json:"booking_id"`
}

// ProcessSegmentHandler admits one route chunk. A capacity shortfall is a 400
// with the reason in the body; the coordinator turns that into a failed saga.
func ProcessSegmentHandler(deps *RegionDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.ReserveRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{
				"status":  "failure",
				"message": "invalid request body",
			})
		}

		reserved, err := deps.Reservations.Reserve(c.UserContext(), &req)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidInput):
				return c.Status(400).JSON(fiber.Map{
					"status":  "failure",
					"message": "booking_id and at least two coordinates are required",
				})
			case errors.Is(err, domain.ErrCapacityExceeded):
				return c.Status(400).JSON(fiber.Map{
					"status":  "failure",
					"message": err.Error(),
				})
			default:
				LoggerFromCtx(c.UserContext()).Error("reserve failed",
					"booking_id", req.BookingID, "error", err)
				return c.Status(500).JSON(fiber.Map{
					"status":  "failure",
					"message": "internal error",
				})
			}
		}

		return c.JSON(fiber.Map{
			"status":            "success",
			"message":           "Segment processed successfully",
			"segments_reserved": reserved,
		})
	}
}

// ConfirmBookingHandler promotes the booking's reserved rows to success.
func ConfirmBookingHandler(deps *RegionDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req bookingIDRequest
		if err := c.BodyParser(&req); err != nil || req.BookingID == "" {
			return c.Status(400).JSON(fiber.Map{
				"status":  "failure",
				"message": "booking_id is required",
			})
		}

		if err := deps.Reservations.Confirm(c.UserContext(), req.BookingID); err != nil {
			LoggerFromCtx(c.UserContext()).Error("confirm failed",
				"booking_id", req.BookingID, "error", err)
			return c.Status(500).JSON(fiber.Map{
				"status":  "failure",
				"message": "internal error",
			})
		}

		return c.JSON(fiber.Map{"status": "success", "message": "Booking confirmed"})
	}
}

// RegionCancelHandler releases the booking's capacity and reports counts.
// Unknown bookings answer 200 with a not_found outcome.
func RegionCancelHandler(deps *RegionDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req bookingIDRequest
		if err := c.BodyParser(&req); err != nil || req.BookingID == "" {
			return c.Status(400).JSON(fiber.Map{
				"status":  "failure",
				"message": "booking_id is required",
			})
		}

		outcome, err := deps.Reservations.Cancel(c.UserContext(), req.BookingID)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("cancel failed",
				"booking_id", req.BookingID, "error", err)
			return c.Status(500).JSON(fiber.Map{
				"status":  "failure",
				"message": "internal error",
			})
		}

		return c.JSON(outcome)
	}
}

// RegionSegmentsHandler lists the booking's rows joined with the inventory.
func RegionSegmentsHandler(deps *RegionDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bookingID := c.Params("booking_id")

		segments, err := deps.Reservations.Segments(c.UserContext(), bookingID)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				return c.Status(400).JSON(fiber.Map{
					"status":  "failure",
					"message": "booking_id is required",
				})
			}
			return c.Status(500).JSON(fiber.Map{
				"status":  "failure",
				"message": "internal error",
			})
		}
		if segments == nil {
			segments = []domain.SegmentDetail{}
		}

		return c.JSON(fiber.Map{
			"booking_id": bookingID,
			"segments":   segments,
		})
	}
}
