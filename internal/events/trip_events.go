package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/application"
)

// Event sources and types carried in CloudEvents.
const (
	Source = "service-trip"

	TripPickupRecorded  = "trip.pickup_recorded"
	TripDropoffRecorded = "trip.dropoff_recorded"
	TripLocationPicked  = "trip.location_picked"
)

// TripsChangedEvent is published after every successful ledger mutation.
type TripsChangedEvent struct {
	SessionID  uuid.UUID             `json:"session_id"`
	Trip       application.TripDTO   `json:"trip"`
	Trips      []application.TripDTO `json:"trips"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// LocationPickedEvent is a map click delivered over Kafka.
type LocationPickedEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Kind      string    `json:"kind"`
}

func eventTypeFor(action string) string {
	if action == application.ActionDropoffRecorded {
		return TripDropoffRecorded
	}
	return TripPickupRecorded
}
