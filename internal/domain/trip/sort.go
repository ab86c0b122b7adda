package trip

import (
	"cmp"
	"fmt"
	"slices"
)

// SortField is the trip metric a list is ordered by.
type SortField string

const (
	SortByFare     SortField = "fare"
	SortByDistance SortField = "distance"
	SortByTime     SortField = "time"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// Sort is a field and direction pair.
type Sort struct {
	Field     SortField
	Direction SortDirection
}

// DefaultSort orders by fare, cheapest first.
func DefaultSort() Sort {
	return Sort{Field: SortByFare, Direction: Ascending}
}

// Select returns the sort after a user picks field: the same field flips the
// direction, a different field starts ascending.
func (s Sort) Select(field SortField) Sort {
	if s.Field == field {
		if s.Direction == Ascending {
			return Sort{Field: field, Direction: Descending}
		}
		return Sort{Field: field, Direction: Ascending}
	}
	return Sort{Field: field, Direction: Ascending}
}

// SortTrips returns a copy of trips ordered by s. The sort is stable in both
// directions, and open trips compare as zero.
func SortTrips(trips []Trip, s Sort) []Trip {
	key := sortKey(s.Field)
	out := slices.Clone(trips)
	slices.SortStableFunc(out, func(a, b Trip) int {
		if s.Direction == Descending {
			return cmp.Compare(key(&b), key(&a))
		}
		return cmp.Compare(key(&a), key(&b))
	})
	return out
}

func sortKey(field SortField) func(*Trip) float64 {
	switch field {
	case SortByDistance:
		return (*Trip).DistanceKm
	case SortByTime:
		return func(t *Trip) float64 { return float64(t.EstimatedTimeMinutes()) }
	default:
		return (*Trip).Fare
	}
}

// ParseSortField converts a string to a SortField, returning an error if invalid.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(s); f {
	case SortByFare, SortByDistance, SortByTime:
		return f, nil
	default:
		return "", fmt.Errorf("invalid sort field: %s", s)
	}
}

// ParseSortDirection converts a string to a SortDirection, returning an error if invalid.
func ParseSortDirection(s string) (SortDirection, error) {
	switch d := SortDirection(s); d {
	case Ascending, Descending:
		return d, nil
	default:
		return "", fmt.Errorf("invalid sort direction: %s", s)
	}
}
