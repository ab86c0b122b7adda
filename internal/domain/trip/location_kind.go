package trip

import "fmt"

// LocationKind tags a location pick as the start or end of a trip.
type LocationKind string

const (
	KindPickup  LocationKind = "pickup"
	KindDropoff LocationKind = "dropoff"
)

// IsValid returns true if the kind is pickup or dropoff.
func (k LocationKind) IsValid() bool {
	return k == KindPickup || k == KindDropoff
}

// String returns the string representation of the kind.
func (k LocationKind) String() string {
	return string(k)
}

// ParseLocationKind converts a string to a LocationKind, returning an error if invalid.
func ParseLocationKind(s string) (LocationKind, error) {
	kind := LocationKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocationKind, s)
	}
	return kind, nil
}
