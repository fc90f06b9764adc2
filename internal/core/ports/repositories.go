package ports

import (
	"context"

	"github.com/openroads/roadpass/internal/core/domain"
)

// BookingRepository persists the central booking records.
type BookingRepository interface {
	// Create inserts a new record. Returns domain.ErrDuplicateBooking if the
	// booking id already exists.
	Create(ctx context.Context, booking *domain.BookingInfo) error
	// GetByID returns domain.ErrNotFound for unknown ids.
	GetByID(ctx context.Context, bookingID string) (*domain.BookingInfo, error)
	UpdateStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error
	// List returns a page of bookings, newest first, plus the total count.
	List(ctx context.Context, offset, limit int) ([]domain.BookingInfo, int, error)
}

// SegmentStore persists one region's road-segment inventory and its booking
// rows. Reserve is the admission-control path: it must be atomic per chunk —
// either every listed segment gains one unit of load and a waiting row, or
// nothing changes.
type SegmentStore interface {
	// SegmentsWithin returns every inventory segment whose geometry
	// intersects the bounding box. A coarse prefilter for the matcher.
	SegmentsWithin(ctx context.Context, b domain.Bounds) ([]domain.RoadSegment, error)

	// Reserve checks current_load < capacity for every segment id under a
	// single set of row locks, then increments loads and inserts waiting
	// BookingSegment rows with segment_order following the slice order.
	// Returns domain.ErrCapacityExceeded if any segment is missing or full;
	// in that case nothing has been mutated.
	Reserve(ctx context.Context, bookingID string, segmentIDs []string) error

	// ConfirmBooking sets status=success on every row of the booking,
	// regardless of prior status.
	ConfirmBooking(ctx context.Context, bookingID string) error

	// CancelBooking frees load for waiting/success rows (floored at zero),
	// marks every row cancelled, and reports the counts. A booking with no
	// rows in this region yields a not_found outcome with zero counts, not
	// an error.
	CancelBooking(ctx context.Context, bookingID string) (domain.CancelOutcome, error)

	// BookingSegments returns the booking's rows joined with the current
	// inventory snapshot, sorted by segment_order. Empty for unknown ids.
	BookingSegments(ctx context.Context, bookingID string) ([]domain.SegmentDetail, error)

	// UpsertSegments loads or refreshes inventory rows (out-of-band seeding).
	UpsertSegments(ctx context.Context, segments []domain.RoadSegment) error
}
