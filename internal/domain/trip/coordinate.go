package trip

import (
	"fmt"
	"math"
)

// Coordinate is an immutable WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	lat float64
	lng float64
}

// NewCoordinate validates and creates a Coordinate. Longitudes from a
// repeated world copy of the map are wrapped into [-180, 180).
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return Coordinate{}, fmt.Errorf("%w: latitude and longitude must be finite", ErrInvalidCoordinates)
	}
	if lat < -90 || lat > 90 {
		return Coordinate{}, fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinates, lat)
	}
	return Coordinate{lat: lat, lng: wrapLongitude(lng)}, nil
}

func wrapLongitude(lng float64) float64 {
	if lng >= -180 && lng < 180 {
		return lng
	}
	w := math.Mod(lng+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}

// Latitude returns the latitude in degrees.
func (c Coordinate) Latitude() float64 { return c.lat }

// Longitude returns the longitude in degrees.
func (c Coordinate) Longitude() float64 { return c.lng }

// Equal reports whether both coordinates are identical.
func (c Coordinate) Equal(other Coordinate) bool {
	return c.lat == other.lat && c.lng == other.lng
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.lat, c.lng)
}
