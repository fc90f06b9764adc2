package domain

// SegmentStatus is the lifecycle state of one reserved segment row.
type SegmentStatus string

const (
	SegmentWaiting   SegmentStatus = "waiting"
	SegmentSuccess   SegmentStatus = "success"
	SegmentFailed    SegmentStatus = "failed"
	SegmentCancelled SegmentStatus = "cancelled"
)

// RoadSegment is one row of a region's pre-existing segment inventory.
// Capacity is advisory: current_load may only grow past it if the store's
// reservation path is bypassed, never through Reserve.
type RoadSegment struct {
	SegmentID   string     `json:"segment_id"`
	Geometry    []GeoPoint `json:"geometry"`
	Capacity    int        `json:"capacity"`
	CurrentLoad int        `json:"current_load"`
	Name        string     `json:"name"`
	OSMID       int64      `json:"osm_id"`
}

// BookingSegment records one claimed segment of one booking inside a region.
// SegmentOrder is the 0-based position within the region's chunk.
type BookingSegment struct {
	BookingID    string        `json:"booking_id"`
	SegmentID    string        `json:"segment_id"`
	SegmentOrder int           `json:"segment_order"`
	Status       SegmentStatus `json:"status"`
}

// SegmentDetail is a BookingSegment joined with the live inventory snapshot,
// as returned by a region's get_segments query.
type SegmentDetail struct {
	SegmentID    string        `json:"segment_id"`
	SegmentOrder int           `json:"segment_order"`
	Status       SegmentStatus `json:"status"`
	CurrentLoad  int           `json:"current_load"`
	Capacity     int           `json:"capacity"`
	Coordinates  []GeoPoint    `json:"coordinates"`
	Name         string        `json:"name"`
	OSMID        int64         `json:"osm_id"`
}

// CancelOutcome is a region's answer to a cancel call. SegmentsCancelled
// counts every row of the booking regardless of prior status; SegmentsFreed
// counts only rows that actually released load (waiting or success).
type CancelOutcome struct {
	Status            string `json:"status"`
	Message           string `json:"message,omitempty"`
	SegmentsCancelled int    `json:"segments_cancelled"`
	SegmentsFreed     int    `json:"segments_freed"`
}
