package trip

import (
	"errors"
	"math"
)

// FareEstimate holds the derived metrics of a closed trip.
type FareEstimate struct {
	DistanceKm           float64
	Fare                 float64
	EstimatedTimeMinutes int
}

// FareEstimator defines the interface for estimating a trip between two points.
type FareEstimator interface {
	// Estimate returns the distance, fare and travel time from pickup to dropoff.
	Estimate(pickup, dropoff Coordinate) FareEstimate
}

// FareSchedule holds the tariff used by StandardFareEstimator.
type FareSchedule struct {
	BaseFare        float64
	PerKmRate       float64
	AverageSpeedKmh float64
}

// DefaultFareSchedule returns base fare 3.00, 1.00 per km at 40 km/h.
func DefaultFareSchedule() FareSchedule {
	return FareSchedule{
		BaseFare:        3.0,
		PerKmRate:       1.0,
		AverageSpeedKmh: 40.0,
	}
}

// Validate rejects schedules that would produce nonsensical estimates.
func (s FareSchedule) Validate() error {
	if s.BaseFare < 0 || math.IsNaN(s.BaseFare) || math.IsInf(s.BaseFare, 0) {
		return errors.New("base fare must be a finite non-negative number")
	}
	if s.PerKmRate < 0 || math.IsNaN(s.PerKmRate) || math.IsInf(s.PerKmRate, 0) {
		return errors.New("per-km rate must be a finite non-negative number")
	}
	if !(s.AverageSpeedKmh > 0) || math.IsInf(s.AverageSpeedKmh, 0) {
		return errors.New("average speed must be a finite positive number")
	}
	return nil
}

// StandardFareEstimator prices a trip by straight-line distance.
type StandardFareEstimator struct {
	schedule FareSchedule
}

// NewStandardFareEstimator creates a StandardFareEstimator for the given schedule.
func NewStandardFareEstimator(schedule FareSchedule) (*StandardFareEstimator, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	return &StandardFareEstimator{schedule: schedule}, nil
}

// Schedule returns the tariff in use.
func (e *StandardFareEstimator) Schedule() FareSchedule { return e.schedule }

// Estimate computes the trip metrics.
//
// Formula:
//   - distance: haversine metres / 1000
//   - fare: base fare + distance * per-km rate
//   - time: distance / average speed in minutes, rounded half away from zero
//
// Values are kept at full precision; callers round for display.
func (e *StandardFareEstimator) Estimate(pickup, dropoff Coordinate) FareEstimate {
	distanceKm := DistanceMeters(pickup, dropoff) / 1000
	return FareEstimate{
		DistanceKm:           distanceKm,
		Fare:                 e.schedule.BaseFare + distanceKm*e.schedule.PerKmRate,
		EstimatedTimeMinutes: int(math.Round(distanceKm / e.schedule.AverageSpeedKmh * 60)),
	}
}
