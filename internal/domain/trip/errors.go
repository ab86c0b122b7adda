package trip

import (
	"errors"
	"fmt"
)

var (
	// ErrPickupWhileOpen is returned when a pickup is recorded while the last trip is still open.
	ErrPickupWhileOpen = errors.New("trip: pickup while a trip is open")
	// ErrNoOpenTrip is returned when a dropoff is recorded with no open trip to close.
	ErrNoOpenTrip = errors.New("trip: no open trip")
	// ErrTripNotFound is returned when no trip has the requested id.
	ErrTripNotFound = errors.New("trip: not found")
	// ErrTripNotClosed is returned when an operation needs a dropoff the trip does not have yet.
	ErrTripNotClosed = errors.New("trip: not closed")
	// ErrInvalidCoordinates is returned for NaN, infinite or out-of-range coordinates.
	ErrInvalidCoordinates = errors.New("trip: invalid coordinates")
	// ErrInvalidLocationKind is returned for a location kind other than pickup or dropoff.
	ErrInvalidLocationKind = errors.New("trip: invalid location kind")
)

// PickupWhileOpenError carries the id of the trip that is still open.
type PickupWhileOpenError struct {
	OpenTripID int64
}

func (e *PickupWhileOpenError) Error() string {
	return fmt.Sprintf("trip %d is still open: %v", e.OpenTripID, ErrPickupWhileOpen)
}

// Unwrap lets errors.Is match ErrPickupWhileOpen.
func (e *PickupWhileOpenError) Unwrap() error { return ErrPickupWhileOpen }
