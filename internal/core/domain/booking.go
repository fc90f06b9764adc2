package domain

import "time"

// BookingStatus is the persisted state of a central booking record.
type BookingStatus string

const (
	BookingSuccess   BookingStatus = "success"
	BookingFailure   BookingStatus = "failure"
	BookingCancelled BookingStatus = "cancelled"
)

// BookingInfo is the single central record of a booking saga, written once at
// the end of the first round with the outcome already decided. It is never
// deleted; only its status is overwritten by an explicit cancel.
type BookingInfo struct {
	BookingID     string        `json:"booking_id"`
	StartLocation string        `json:"start_location"`
	EndLocation   string        `json:"end_location"`
	Regions       []string      `json:"regions"`
	Status        BookingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// RouteChunk is a maximal contiguous run of a route's coordinates lying in
// one region. Runs that no configured region covers are kept as explicit gap
// chunks (Covered=false) so the caller can see where coverage broke, but no
// regional call is ever issued for them.
type RouteChunk struct {
	Region  string     `json:"region"`
	Covered bool       `json:"covered"`
	Points  []GeoPoint `json:"points"`
}

// ReserveRequest is the payload the coordinator sends to a regional manager
// for one chunk.
type ReserveRequest struct {
	BookingID   string     `json:"booking_id"`
	Coordinates []GeoPoint `json:"coordinates"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	StartTime   string     `json:"start_time"`
}

// BookingEvent is published on the message bus after a saga round or a
// client-initiated cancel has been persisted.
type BookingEvent struct {
	BookingID string    `json:"booking_id"`
	Status    string    `json:"status"`
	Regions   []string  `json:"regions"`
	At        time.Time `json:"at"`
}
