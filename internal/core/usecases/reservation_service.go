package usecases

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openroads/roadpass/internal/core/domain"
	"github.com/openroads/roadpass/internal/core/ports"
	"github.com/openroads/roadpass/internal/pkg/metrics"
)

// ReservationService is the regional manager's business logic: match a route
// chunk against the local inventory, admit it atomically, and serve the
// confirm/cancel/inspect calls of the second saga phase.
type ReservationService struct {
	store   ports.SegmentStore
	matcher *SegmentMatcher
	region  string
}

func NewReservationService(store ports.SegmentStore, matcher *SegmentMatcher, region string) *ReservationService {
	return &ReservationService{store: store, matcher: matcher, region: region}
}

// Reserve matches the chunk's coordinates against the inventory and claims
// one unit of capacity on every matched segment, all or nothing. A chunk that
// crosses no known road reserves nothing and still succeeds.
func (s *ReservationService) Reserve(ctx context.Context, req *domain.ReserveRequest) (int, error) {
	if req.BookingID == "" || len(req.Coordinates) < 2 {
		return 0, domain.ErrInvalidInput
	}

	matched, err := s.matcher.Match(ctx, req.Coordinates)
	if err != nil {
		return 0, err
	}
	metrics.SegmentsMatched.Observe(float64(len(matched)))

	if len(matched) == 0 {
		slog.Warn("no road segments matched chunk",
			"region", s.region, "booking_id", req.BookingID, "points", len(req.Coordinates))
		metrics.ReservationsAccepted.Inc()
		return 0, nil
	}

	ids := make([]string, len(matched))
	for i, seg := range matched {
		ids[i] = seg.SegmentID
	}

	if err := s.store.Reserve(ctx, req.BookingID, ids); err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			metrics.ReservationsRejected.WithLabelValues("capacity").Inc()
		} else {
			metrics.ReservationsRejected.WithLabelValues("store").Inc()
		}
		return 0, err
	}

	slog.Info("chunk reserved",
		"region", s.region, "booking_id", req.BookingID, "segments", len(ids))
	metrics.ReservationsAccepted.Inc()
	return len(ids), nil
}

// Confirm promotes every reserved row of the booking to success. It is
// deliberately unconditional: a confirm that arrives twice, or for a booking
// with already-promoted rows, converges on the same state.
func (s *ReservationService) Confirm(ctx context.Context, bookingID string) error {
	if bookingID == "" {
		return domain.ErrInvalidInput
	}
	return s.store.ConfirmBooking(ctx, bookingID)
}

// Cancel releases the booking's claimed capacity and marks its rows
// cancelled. Unknown bookings are a no-op outcome, not an error, so a
// compensation broadcast can safely hit regions that never held anything.
func (s *ReservationService) Cancel(ctx context.Context, bookingID string) (domain.CancelOutcome, error) {
	if bookingID == "" {
		return domain.CancelOutcome{}, domain.ErrInvalidInput
	}
	return s.store.CancelBooking(ctx, bookingID)
}

// Segments returns the booking's rows joined with the live inventory, in
// travel order.
func (s *ReservationService) Segments(ctx context.Context, bookingID string) ([]domain.SegmentDetail, error) {
	if bookingID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.store.BookingSegments(ctx, bookingID)
}
