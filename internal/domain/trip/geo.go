package trip

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	lat1 := toRadians(a.lat)
	lat2 := toRadians(b.lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.lng - a.lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h a hair above 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
