package trip

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedEstimator returns the same estimate for every pair.
type fixedEstimator struct {
	estimate FareEstimate
	calls    int
}

func (f *fixedEstimator) Estimate(Coordinate, Coordinate) FareEstimate {
	f.calls++
	return f.estimate
}

func defaultEstimator(t *testing.T) FareEstimator {
	t.Helper()
	e, err := NewStandardFareEstimator(DefaultFareSchedule())
	require.NoError(t, err)
	return e
}

func TestLedger_RecordPickup(t *testing.T) {
	l := NewLedger()
	assert.Equal(t, KindPickup, l.NextExpected())

	first, err := l.RecordPickup(mustCoord(t, -6.2729, 106.7893))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID())
	assert.True(t, first.IsOpen())
	assert.Nil(t, first.Dropoff())
	assert.Nil(t, first.Estimate())
	assert.Nil(t, first.DroppedOffAt())
	assert.False(t, first.PickedUpAt().IsZero())
	assert.Equal(t, KindDropoff, l.NextExpected())
	assert.Equal(t, 1, l.Len())
}

func TestLedger_RecordPickupWhileOpen(t *testing.T) {
	l := NewLedger()
	_, err := l.RecordPickup(mustCoord(t, 1, 1))
	require.NoError(t, err)
	before := l.ListTrips()

	_, err = l.RecordPickup(mustCoord(t, 2, 2))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPickupWhileOpen)
	var openErr *PickupWhileOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, int64(1), openErr.OpenTripID)
	assert.Equal(t, before, l.ListTrips())
}

func TestLedger_RecordDropoff(t *testing.T) {
	l := NewLedger()
	pickup := mustCoord(t, -6.2729, 106.7893)
	dropoff := mustCoord(t, -6.2000, 106.8000)

	_, err := l.RecordPickup(pickup)
	require.NoError(t, err)

	closed, err := l.RecordDropoff(dropoff, defaultEstimator(t))
	require.NoError(t, err)

	assert.Equal(t, int64(1), closed.ID())
	assert.False(t, closed.IsOpen())
	require.NotNil(t, closed.Dropoff())
	assert.True(t, dropoff.Equal(*closed.Dropoff()))
	require.NotNil(t, closed.Estimate())
	assert.InDelta(t, 8.1919, closed.DistanceKm(), 1e-3)
	assert.InDelta(t, 11.1919, closed.Fare(), 1e-3)
	assert.Equal(t, 12, closed.EstimatedTimeMinutes())
	assert.NotNil(t, closed.DroppedOffAt())
	assert.Equal(t, KindPickup, l.NextExpected())

	trips := l.ListTrips()
	require.Len(t, trips, 1)
	assert.False(t, trips[0].IsOpen())
}

func TestLedger_RecordDropoffWithoutOpenTrip(t *testing.T) {
	estimator := &fixedEstimator{}

	t.Run("empty ledger", func(t *testing.T) {
		l := NewLedger()
		_, err := l.RecordDropoff(mustCoord(t, 1, 1), estimator)
		assert.ErrorIs(t, err, ErrNoOpenTrip)
		assert.Equal(t, 0, l.Len())
	})

	t.Run("last trip closed", func(t *testing.T) {
		l := NewLedger()
		_, err := l.RecordPickup(mustCoord(t, 1, 1))
		require.NoError(t, err)
		_, err = l.RecordDropoff(mustCoord(t, 1, 2), estimator)
		require.NoError(t, err)
		before := l.ListTrips()

		_, err = l.RecordDropoff(mustCoord(t, 1, 3), estimator)

		assert.ErrorIs(t, err, ErrNoOpenTrip)
		assert.Equal(t, before, l.ListTrips())
	})

	assert.Equal(t, 1, estimator.calls)
}

func TestLedger_ReturnedTripsAreCopies(t *testing.T) {
	l := NewLedger()
	opened, err := l.RecordPickup(mustCoord(t, 1, 1))
	require.NoError(t, err)

	_, err = l.RecordDropoff(mustCoord(t, 2, 2), defaultEstimator(t))
	require.NoError(t, err)

	assert.True(t, opened.IsOpen())
	listed := l.ListTrips()
	*listed[0].estimate = FareEstimate{Fare: 999}
	assert.NotEqual(t, 999.0, l.ListTrips()[0].Fare())
}

func TestLedger_FindTrip(t *testing.T) {
	l := NewLedger()
	for i := 0; i < 3; i++ {
		_, err := l.RecordPickup(mustCoord(t, 0, float64(i)))
		require.NoError(t, err)
		_, err = l.RecordDropoff(mustCoord(t, 1, float64(i)), defaultEstimator(t))
		require.NoError(t, err)
	}

	got, err := l.FindTrip(2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID())
	assert.Equal(t, 1.0, got.Pickup().Longitude())

	_, err = l.FindTrip(42)
	assert.ErrorIs(t, err, ErrTripNotFound)
}

// Random pickup/dropoff sequences must keep at most one open trip, always
// last, with strictly increasing ids, and failed operations change nothing.
func TestLedger_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	estimator := defaultEstimator(t)

	for run := 0; run < 200; run++ {
		l := NewLedger()
		var maxID int64

		for step := 0; step < 40; step++ {
			coord := mustCoord(t, rng.Float64()*180-90, rng.Float64()*360-180)
			before := l.ListTrips()
			wasOpen := l.NextExpected() == KindDropoff

			if rng.Intn(2) == 0 {
				got, err := l.RecordPickup(coord)
				if wasOpen {
					require.True(t, errors.Is(err, ErrPickupWhileOpen))
					require.Equal(t, before, l.ListTrips())
				} else {
					require.NoError(t, err)
					require.Greater(t, got.ID(), maxID)
					maxID = got.ID()
				}
			} else {
				_, err := l.RecordDropoff(coord, estimator)
				if !wasOpen {
					require.True(t, errors.Is(err, ErrNoOpenTrip))
					require.Equal(t, before, l.ListTrips())
				} else {
					require.NoError(t, err)
				}
			}

			open := 0
			trips := l.ListTrips()
			for i := range trips {
				if trips[i].IsOpen() {
					open++
					require.Equal(t, len(trips)-1, i, "open trip must be last")
				}
				require.True(t, trips[i].consistent())
				if i > 0 {
					require.Greater(t, trips[i].ID(), trips[i-1].ID())
				}
			}
			require.LessOrEqual(t, open, 1)
		}
	}
}

func TestReconstructLedger(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	p := mustCoord(t, 1, 1)
	d := mustCoord(t, 2, 2)
	est := &FareEstimate{DistanceKm: 157.2, Fare: 160.2, EstimatedTimeMinutes: 236}

	closed := func(id int64) *Trip { return ReconstructTrip(id, p, &d, est, now, &now) }
	open := func(id int64) *Trip { return ReconstructTrip(id, p, nil, nil, now, nil) }

	tests := []struct {
		name     string
		trips    []*Trip
		hasError bool
	}{
		{name: "empty"},
		{name: "closed then open", trips: []*Trip{closed(1), closed(2), open(3)}},
		{name: "gaps in ids are kept", trips: []*Trip{closed(1), closed(5)}},
		{name: "open not last", trips: []*Trip{open(1), closed(2)}, hasError: true},
		{name: "ids not increasing", trips: []*Trip{closed(2), closed(2)}, hasError: true},
		{name: "zero id", trips: []*Trip{closed(0)}, hasError: true},
		{name: "partial dropoff", trips: []*Trip{ReconstructTrip(1, p, &d, nil, now, &now)}, hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := ReconstructLedger(tt.trips)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.trips), l.Len())
		})
	}

	t.Run("next id follows the last id", func(t *testing.T) {
		l, err := ReconstructLedger([]*Trip{closed(1), closed(5)})
		require.NoError(t, err)
		got, err := l.RecordPickup(p)
		require.NoError(t, err)
		assert.Equal(t, int64(6), got.ID())
	})
}
