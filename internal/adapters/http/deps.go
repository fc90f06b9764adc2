package http

import (
	"github.com/nats-io/nats.go"

	"github.com/openroads/roadpass/internal/adapters/postgres"
	"github.com/openroads/roadpass/internal/adapters/valkey"
	"github.com/openroads/roadpass/internal/core/usecases"
)

// Dependencies holds everything the coordinator's HTTP handlers need.
type Dependencies struct {
	Bookings *usecases.BookingService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}

// RegionDependencies holds everything a regional manager's handlers need.
type RegionDependencies struct {
	Reservations *usecases.ReservationService
	DB           *postgres.DB
}
