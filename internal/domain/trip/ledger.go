package trip

import (
	"fmt"
	"time"
)

// Ledger is the ordered sequence of trips of one session. Trips are only
// appended, and only the last one may be open.
type Ledger struct {
	trips []*Trip
	now   func() time.Time
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{now: utcNow}
}

// ReconstructLedger rebuilds a Ledger from persisted trips in id order,
// rejecting data that breaks the ledger invariants.
func ReconstructLedger(trips []*Trip) (*Ledger, error) {
	var prevID int64
	for i, t := range trips {
		if t == nil {
			return nil, fmt.Errorf("trip at position %d is nil", i)
		}
		if t.id <= prevID {
			return nil, fmt.Errorf("trip id %d does not follow %d", t.id, prevID)
		}
		if !t.consistent() {
			return nil, fmt.Errorf("trip %d has a partial dropoff", t.id)
		}
		if t.IsOpen() && i != len(trips)-1 {
			return nil, fmt.Errorf("trip %d is open but is not the last trip", t.id)
		}
		prevID = t.id
	}

	l := NewLedger()
	l.trips = make([]*Trip, len(trips))
	for i, t := range trips {
		l.trips[i] = t.clone()
	}
	return l, nil
}

// RecordPickup appends a new open trip at coord. It fails with a
// *PickupWhileOpenError if the last trip is still open.
func (l *Ledger) RecordPickup(coord Coordinate) (*Trip, error) {
	if open, ok := l.openTrip(); ok {
		return nil, &PickupWhileOpenError{OpenTripID: open.id}
	}

	t := newTrip(l.LastID()+1, coord, l.now())
	l.trips = append(l.trips, t)
	return t.clone(), nil
}

// RecordDropoff closes the open trip at coord with metrics from estimator.
// It fails with ErrNoOpenTrip if there is nothing to close.
func (l *Ledger) RecordDropoff(coord Coordinate, estimator FareEstimator) (*Trip, error) {
	open, ok := l.openTrip()
	if !ok {
		return nil, ErrNoOpenTrip
	}

	open.close(coord, estimator.Estimate(open.pickup, coord), l.now())
	return open.clone(), nil
}

// ListTrips returns a snapshot of all trips in id order.
func (l *Ledger) ListTrips() []Trip {
	out := make([]Trip, len(l.trips))
	for i, t := range l.trips {
		out[i] = *t.clone()
	}
	return out
}

// OpenTrip returns a copy of the open trip, if any.
func (l *Ledger) OpenTrip() (*Trip, bool) {
	t, ok := l.openTrip()
	if !ok {
		return nil, false
	}
	return t.clone(), true
}

// FindTrip returns a copy of the trip with the given id.
func (l *Ledger) FindTrip(id int64) (*Trip, error) {
	for _, t := range l.trips {
		if t.id == id {
			return t.clone(), nil
		}
	}
	return nil, fmt.Errorf("trip %d: %w", id, ErrTripNotFound)
}

// Len returns the number of trips.
func (l *Ledger) Len() int { return len(l.trips) }

// LastID returns the highest id assigned so far, 0 for an empty ledger.
func (l *Ledger) LastID() int64 {
	if len(l.trips) == 0 {
		return 0
	}
	return l.trips[len(l.trips)-1].id
}

// NextExpected returns the kind of location the ledger can accept next.
func (l *Ledger) NextExpected() LocationKind {
	if _, ok := l.openTrip(); ok {
		return KindDropoff
	}
	return KindPickup
}

func (l *Ledger) openTrip() (*Trip, bool) {
	if len(l.trips) == 0 {
		return nil, false
	}
	last := l.trips[len(l.trips)-1]
	return last, last.IsOpen()
}

func utcNow() time.Time { return time.Now().UTC() }
