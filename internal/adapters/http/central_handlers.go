package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/openroads/roadpass/internal/core/domain"
)

// bookingRequest is the payload accepted by POST /send_request. Coordinates
// are "lat,lon" strings.
type bookingRequest struct {
	Name                   string `json:"name"`
	Email                  string `json:"email"`
	StartCoordinates       string `json:"start_coordinates"`
	DestinationCoordinates string `json:"destination_coordinates"`
	StartTime              string `json:"start_time"`
}

// SendRequestHandler runs a full booking saga round. The response always
// carries the decided outcome: there is no pending state to poll.
func SendRequestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req bookingRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.StartCoordinates == "" || req.DestinationCoordinates == "" {
			return errBadRequest(c, "start_coordinates and destination_coordinates are required")
		}

		result, err := deps.Bookings.Submit(c.UserContext(),
			req.StartCoordinates, req.DestinationCoordinates,
			req.Name, req.Email, req.StartTime)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidInput):
				return errBadRequest(c, err.Error())
			case errors.Is(err, domain.ErrNoRoute):
				return errBadGateway(c, "no drivable route between the given coordinates")
			case errors.Is(err, domain.ErrDuplicateBooking):
				return errConflict(c, "booking id collision, please retry")
			default:
				LoggerFromCtx(c.UserContext()).Error("booking saga failed", "error", err)
				return errInternal(c, "booking could not be processed")
			}
		}

		return c.JSON(result)
	}
}

// BookingStatusHandler returns the central record of a booking.
func BookingStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bookingID := c.Params("booking_id")

		booking, err := deps.Bookings.Status(c.UserContext(), bookingID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				return errNotFound(c, "booking "+bookingID+" not found")
			case errors.Is(err, domain.ErrInvalidInput):
				return errBadRequest(c, "booking_id is required")
			default:
				return errInternal(c, "could not load booking")
			}
		}

		return c.JSON(booking)
	}
}

// BookingSegmentsHandler merges the involved regions' segment listings.
func BookingSegmentsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bookingID := c.Params("booking_id")

		report, err := deps.Bookings.Segments(c.UserContext(), bookingID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errNotFound(c, "booking "+bookingID+" not found")
			}
			return errInternal(c, "could not collect segments")
		}

		return c.JSON(report)
	}
}

// CancelBookingHandler releases a booking's capacity in every involved region.
func CancelBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bookingID := c.Params("booking_id")

		summary, err := deps.Bookings.Cancel(c.UserContext(), bookingID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errNotFound(c, "booking "+bookingID+" not found")
			}
			LoggerFromCtx(c.UserContext()).Error("cancel failed", "booking_id", bookingID, "error", err)
			return errInternal(c, "booking could not be cancelled")
		}

		return c.JSON(summary)
	}
}

// ListBookingsHandler returns a paginated booking history, newest first.
func ListBookingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)

		bookings, total, err := deps.Bookings.List(c.UserContext(), offset, limit)
		if err != nil {
			return errInternal(c, "could not list bookings")
		}
		if bookings == nil {
			bookings = []domain.BookingInfo{}
		}

		p := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, p)
		return c.JSON(PaginatedResponse{Data: bookings, Pagination: p})
	}
}
