package trip

import "time"

// Trip is a pickup optionally paired with a dropoff and its fare estimate.
type Trip struct {
	id           int64
	pickup       Coordinate
	dropoff      *Coordinate
	estimate     *FareEstimate
	pickedUpAt   time.Time
	droppedOffAt *time.Time
}

func newTrip(id int64, pickup Coordinate, at time.Time) *Trip {
	return &Trip{id: id, pickup: pickup, pickedUpAt: at}
}

// ReconstructTrip rebuilds a Trip from persistence data (no validation).
// Ledger reconstruction checks the invariants.
func ReconstructTrip(
	id int64,
	pickup Coordinate,
	dropoff *Coordinate,
	estimate *FareEstimate,
	pickedUpAt time.Time,
	droppedOffAt *time.Time,
) *Trip {
	return &Trip{
		id:           id,
		pickup:       pickup,
		dropoff:      dropoff,
		estimate:     estimate,
		pickedUpAt:   pickedUpAt,
		droppedOffAt: droppedOffAt,
	}
}

// --- Getters ---

// ID returns the trip id, unique within its ledger.
func (t *Trip) ID() int64 { return t.id }

// Pickup returns the pickup coordinate.
func (t *Trip) Pickup() Coordinate { return t.pickup }

// Dropoff returns the dropoff coordinate, or nil while the trip is open.
func (t *Trip) Dropoff() *Coordinate {
	if t.dropoff == nil {
		return nil
	}
	d := *t.dropoff
	return &d
}

// Estimate returns the fare estimate, or nil while the trip is open.
func (t *Trip) Estimate() *FareEstimate {
	if t.estimate == nil {
		return nil
	}
	e := *t.estimate
	return &e
}

// PickedUpAt returns when the pickup was recorded.
func (t *Trip) PickedUpAt() time.Time { return t.pickedUpAt }

// DroppedOffAt returns when the dropoff was recorded, or nil while open.
func (t *Trip) DroppedOffAt() *time.Time {
	if t.droppedOffAt == nil {
		return nil
	}
	d := *t.droppedOffAt
	return &d
}

// IsOpen returns true if the trip has no dropoff yet.
func (t *Trip) IsOpen() bool { return t.dropoff == nil }

// DistanceKm returns the trip distance, 0 while open.
func (t *Trip) DistanceKm() float64 {
	if t.estimate == nil {
		return 0
	}
	return t.estimate.DistanceKm
}

// Fare returns the trip fare, 0 while open.
func (t *Trip) Fare() float64 {
	if t.estimate == nil {
		return 0
	}
	return t.estimate.Fare
}

// EstimatedTimeMinutes returns the travel time, 0 while open.
func (t *Trip) EstimatedTimeMinutes() int {
	if t.estimate == nil {
		return 0
	}
	return t.estimate.EstimatedTimeMinutes
}

// --- Behaviour ---

func (t *Trip) close(dropoff Coordinate, estimate FareEstimate, at time.Time) {
	t.dropoff = &dropoff
	t.estimate = &estimate
	t.droppedOffAt = &at
}

func (t *Trip) clone() *Trip {
	c := *t
	c.dropoff = t.Dropoff()
	c.estimate = t.Estimate()
	c.droppedOffAt = t.DroppedOffAt()
	return &c
}

func (t *Trip) consistent() bool {
	closed := t.dropoff != nil
	return closed == (t.estimate != nil) && closed == (t.droppedOffAt != nil)
}
