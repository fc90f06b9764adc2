package domain

import "errors"

// Error kinds returned by the core services. Callers match these with
// errors.Is; wrapped messages carry the detail.
var (
	// ErrNotFound means the booking id is unknown to the store being queried.
	ErrNotFound = errors.New("booking not found")

	// ErrInvalidInput covers malformed coordinate strings and chunks with
	// fewer than two points.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoRoute means the route planner could not produce a path between
	// the requested points.
	ErrNoRoute = errors.New("no route found")

	// ErrCapacityExceeded means admission control rejected a chunk because a
	// candidate segment is missing or already at capacity. The chunk is
	// rejected whole; nothing was mutated.
	ErrCapacityExceeded = errors.New("insufficient segment capacity")

	// ErrDuplicateBooking means the central store already holds a row for a
	// freshly generated booking id. Practically unreachable, reported anyway.
	ErrDuplicateBooking = errors.New("duplicate booking id")
)
