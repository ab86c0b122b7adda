package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	sessionDomain "github.com/Kilat-Pet-Delivery/service-trip/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/domain/trip"
)

// tripRecord is the stored form of one trip. Dropoff fields are nil while open.
type tripRecord struct {
	ID                   int64      `json:"id"`
	PickupLat            float64    `json:"pickup_lat"`
	PickupLng            float64    `json:"pickup_lng"`
	DropoffLat           *float64   `json:"dropoff_lat,omitempty"`
	DropoffLng           *float64   `json:"dropoff_lng,omitempty"`
	DistanceKm           *float64   `json:"distance_km,omitempty"`
	Fare                 *float64   `json:"fare,omitempty"`
	EstimatedTimeMinutes *int       `json:"estimated_time_minutes,omitempty"`
	PickedUpAt           time.Time  `json:"picked_up_at"`
	DroppedOffAt         *time.Time `json:"dropped_off_at,omitempty"`
}

// sessionRecord is the stored form of a whole session, used by the
// key-value backends.
type sessionRecord struct {
	ID        uuid.UUID    `json:"id"`
	Trips     []tripRecord `json:"trips"`
	Version   int64        `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func toTripRecords(l *trip.Ledger) []tripRecord {
	trips := l.ListTrips()
	records := make([]tripRecord, len(trips))
	for i := range trips {
		t := &trips[i]
		rec := tripRecord{
			ID:           t.ID(),
			PickupLat:    t.Pickup().Latitude(),
			PickupLng:    t.Pickup().Longitude(),
			PickedUpAt:   t.PickedUpAt(),
			DroppedOffAt: t.DroppedOffAt(),
		}
		if d := t.Dropoff(); d != nil {
			lat, lng := d.Latitude(), d.Longitude()
			rec.DropoffLat, rec.DropoffLng = &lat, &lng
		}
		if e := t.Estimate(); e != nil {
			rec.DistanceKm = &e.DistanceKm
			rec.Fare = &e.Fare
			rec.EstimatedTimeMinutes = &e.EstimatedTimeMinutes
		}
		records[i] = rec
	}
	return records
}

func toLedger(records []tripRecord) (*trip.Ledger, error) {
	trips := make([]*trip.Trip, len(records))
	for i, rec := range records {
		pickup, err := trip.NewCoordinate(rec.PickupLat, rec.PickupLng)
		if err != nil {
			return nil, fmt.Errorf("trip %d pickup: %w", rec.ID, err)
		}

		var dropoff *trip.Coordinate
		if rec.DropoffLat != nil && rec.DropoffLng != nil {
			d, err := trip.NewCoordinate(*rec.DropoffLat, *rec.DropoffLng)
			if err != nil {
				return nil, fmt.Errorf("trip %d dropoff: %w", rec.ID, err)
			}
			dropoff = &d
		}

		var estimate *trip.FareEstimate
		if rec.DistanceKm != nil && rec.Fare != nil && rec.EstimatedTimeMinutes != nil {
			estimate = &trip.FareEstimate{
				DistanceKm:           *rec.DistanceKm,
				Fare:                 *rec.Fare,
				EstimatedTimeMinutes: *rec.EstimatedTimeMinutes,
			}
		}

		trips[i] = trip.ReconstructTrip(rec.ID, pickup, dropoff, estimate, rec.PickedUpAt, rec.DroppedOffAt)
	}
	return trip.ReconstructLedger(trips)
}

func encodeTrips(l *trip.Ledger) (json.RawMessage, error) {
	return json.Marshal(toTripRecords(l))
}

func decodeTrips(raw []byte) (*trip.Ledger, error) {
	var records []tripRecord
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trips: %w", err)
		}
	}
	return toLedger(records)
}

func encodeSession(s *sessionDomain.Session) ([]byte, error) {
	return json.Marshal(sessionRecord{
		ID:        s.ID(),
		Trips:     toTripRecords(s.Ledger()),
		Version:   s.Version(),
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
		ExpiresAt: s.ExpiresAt(),
	})
}

func decodeSession(raw []byte) (*sessionDomain.Session, int64, error) {
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	ledger, err := toLedger(rec.Trips)
	if err != nil {
		return nil, 0, fmt.Errorf("session %s holds an invalid ledger: %w", rec.ID, err)
	}
	s := sessionDomain.ReconstructSession(rec.ID, ledger, rec.Version, rec.CreatedAt, rec.UpdatedAt, rec.ExpiresAt)
	return s, rec.Version, nil
}
