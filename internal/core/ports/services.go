package ports

import (
	"context"

	"github.com/openroads/roadpass/internal/core/domain"
)

// RoutePlanner computes a drivable path between two coordinates. Returns
// domain.ErrNoRoute when the planner knows no route; transport failures come
// back wrapped.
type RoutePlanner interface {
	FetchRoute(ctx context.Context, start, dest domain.GeoPoint) ([]domain.GeoPoint, error)
}

// RegionCallResult is the raw outcome of one coordinator→region call. OK is
// true only for a 2xx response; Body carries the region's response text either
// way so the client can echo it back verbatim.
type RegionCallResult struct {
	OK         bool
	StatusCode int
	Body       string
}

// RegionGateway is the coordinator's client for the regional manager API.
// Each method addresses one region by its base endpoint. A returned error
// means the region was unreachable at the transport level; an HTTP-level
// failure is reported through RegionCallResult instead.
type RegionGateway interface {
	Reserve(ctx context.Context, endpoint string, req *domain.ReserveRequest) (RegionCallResult, error)
	Confirm(ctx context.Context, endpoint, bookingID string) (RegionCallResult, error)
	Cancel(ctx context.Context, endpoint, bookingID string) (domain.CancelOutcome, error)
	Segments(ctx context.Context, endpoint, bookingID string) ([]byte, error)
}

// EventPublisher publishes booking lifecycle events to a message broker.
type EventPublisher interface {
	PublishBookingDecided(ctx context.Context, ev *domain.BookingEvent) error
	PublishBookingCancelled(ctx context.Context, ev *domain.BookingEvent) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
