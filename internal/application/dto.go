package application

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/domain/trip"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/domain"
)

// Trip statuses as reported to clients.
const (
	TripStatusOpen   = "open"
	TripStatusClosed = "closed"
)

// CoordinateRequest is a latitude/longitude pair sent by a client.
type CoordinateRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// LocationPickRequest is a map click tagged pickup or dropoff.
type LocationPickRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Kind      string   `json:"kind" binding:"required"`
}

// CoordinateDTO is the response representation of a coordinate.
type CoordinateDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TripDTO is the response representation of a trip. Distance and fare are
// rounded to 2 decimals.
type TripDTO struct {
	ID                   int64          `json:"id"`
	Status               string         `json:"status"`
	Pickup               CoordinateDTO  `json:"pickup"`
	Dropoff              *CoordinateDTO `json:"dropoff,omitempty"`
	DistanceKm           *float64       `json:"distance_km,omitempty"`
	Fare                 *float64       `json:"fare,omitempty"`
	EstimatedTimeMinutes *int           `json:"estimated_time_minutes,omitempty"`
	PickedUpAt           time.Time      `json:"picked_up_at"`
	DroppedOffAt         *time.Time     `json:"dropped_off_at,omitempty"`
}

// TripListDTO is a sorted trip list.
type TripListDTO struct {
	Trips        []TripDTO `json:"trips"`
	Count        int       `json:"count"`
	Sort         string    `json:"sort"`
	Order        string    `json:"order"`
	NextExpected string    `json:"next_expected"`
}

// SessionDTO is returned when a session is created.
type SessionDTO struct {
	SessionID uuid.UUID `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RoundTo2 rounds half away from zero to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

func toCoordinate(lat, lng *float64) (trip.Coordinate, error) {
	if lat == nil || lng == nil {
		return trip.Coordinate{}, domain.NewValidationError("latitude and longitude are required")
	}
	c, err := trip.NewCoordinate(*lat, *lng)
	if err != nil {
		return trip.Coordinate{}, invalidCoordinates(err)
	}
	return c, nil
}

// invalidCoordinates keeps the detail as the message and the sentinel as the
// cause so the text is not repeated.
func invalidCoordinates(err error) *domain.AppError {
	detail := strings.TrimPrefix(err.Error(), trip.ErrInvalidCoordinates.Error()+": ")
	return domain.NewValidationError(detail).WithCause(trip.ErrInvalidCoordinates)
}

func toCoordinateDTO(c trip.Coordinate) CoordinateDTO {
	return CoordinateDTO{Latitude: c.Latitude(), Longitude: c.Longitude()}
}

func toTripDTO(t *trip.Trip) TripDTO {
	dto := TripDTO{
		ID:           t.ID(),
		Status:       TripStatusOpen,
		Pickup:       toCoordinateDTO(t.Pickup()),
		PickedUpAt:   t.PickedUpAt(),
		DroppedOffAt: t.DroppedOffAt(),
	}
	if d := t.Dropoff(); d != nil {
		cd := toCoordinateDTO(*d)
		dto.Dropoff = &cd
		dto.Status = TripStatusClosed
	}
	if e := t.Estimate(); e != nil {
		km := RoundTo2(e.DistanceKm)
		fare := RoundTo2(e.Fare)
		minutes := e.EstimatedTimeMinutes
		dto.DistanceKm = &km
		dto.Fare = &fare
		dto.EstimatedTimeMinutes = &minutes
	}
	return dto
}

func toTripDTOs(trips []trip.Trip) []TripDTO {
	out := make([]TripDTO, len(trips))
	for i := range trips {
		out[i] = toTripDTO(&trips[i])
	}
	return out
}
