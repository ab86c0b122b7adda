package trip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedTrip(t *testing.T, id int64, km, fare float64, minutes int) Trip {
	t.Helper()
	now := time.Now().UTC()
	d := mustCoord(t, 0, 0)
	return *ReconstructTrip(id, mustCoord(t, 0, 0), &d,
		&FareEstimate{DistanceKm: km, Fare: fare, EstimatedTimeMinutes: minutes}, now, &now)
}

func ids(trips []Trip) []int64 {
	out := make([]int64, len(trips))
	for i := range trips {
		out[i] = trips[i].ID()
	}
	return out
}

func TestSortTrips(t *testing.T) {
	now := time.Now().UTC()
	trips := []Trip{
		closedTrip(t, 1, 5, 8, 8),
		closedTrip(t, 2, 2, 5, 3),
		closedTrip(t, 3, 5, 8, 8),
		closedTrip(t, 4, 10, 13, 15),
		*ReconstructTrip(5, mustCoord(t, 0, 0), nil, nil, now, nil),
	}

	tests := []struct {
		name string
		sort Sort
		want []int64
	}{
		{name: "fare asc", sort: Sort{SortByFare, Ascending}, want: []int64{5, 2, 1, 3, 4}},
		{name: "fare desc keeps ties in order", sort: Sort{SortByFare, Descending}, want: []int64{4, 1, 3, 2, 5}},
		{name: "distance asc", sort: Sort{SortByDistance, Ascending}, want: []int64{5, 2, 1, 3, 4}},
		{name: "time desc", sort: Sort{SortByTime, Descending}, want: []int64{4, 1, 3, 2, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortTrips(trips, tt.sort)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(trips), "input must not be reordered")
}

func TestSort_Select(t *testing.T) {
	s := DefaultSort()
	assert.Equal(t, Sort{SortByFare, Ascending}, s)

	s = s.Select(SortByFare)
	assert.Equal(t, Sort{SortByFare, Descending}, s)

	s = s.Select(SortByFare)
	assert.Equal(t, Sort{SortByFare, Ascending}, s)

	s = s.Select(SortByFare).Select(SortByTime)
	assert.Equal(t, Sort{SortByTime, Ascending}, s)
}

func TestParseSort(t *testing.T) {
	f, err := ParseSortField("distance")
	require.NoError(t, err)
	assert.Equal(t, SortByDistance, f)

	_, err = ParseSortField("price")
	assert.Error(t, err)

	d, err := ParseSortDirection("desc")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)

	_, err = ParseSortDirection("down")
	assert.Error(t, err)
}
