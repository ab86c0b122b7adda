package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/domain/trip"
)

// RouteHandle identifies a route drawn by a MapRenderer.
type RouteHandle string

// MapRenderer draws on the map shown to one session. Calls are made after
// the ledger change is saved; their errors are logged and never undo it.
type MapRenderer interface {
	PlaceMarker(ctx context.Context, sessionID uuid.UUID, coord trip.Coordinate, kind trip.LocationKind) error
	DrawRoute(ctx context.Context, sessionID uuid.UUID, pickup, dropoff trip.Coordinate) (RouteHandle, error)
	RemoveRoute(ctx context.Context, sessionID uuid.UUID, handle RouteHandle) error
}

// Trip list actions reported to listeners.
const (
	ActionPickupRecorded  = "pickup_recorded"
	ActionDropoffRecorded = "dropoff_recorded"
)

// TripsChange describes one successful ledger mutation.
type TripsChange struct {
	SessionID  uuid.UUID
	Action     string
	Trip       TripDTO
	Trips      []TripDTO
	OccurredAt time.Time
}

// TripsListener is told about every successful ledger mutation.
type TripsListener interface {
	TripsChanged(ctx context.Context, change TripsChange) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(sessionID uuid.UUID, expiresAt time.Time) (string, error)
}
