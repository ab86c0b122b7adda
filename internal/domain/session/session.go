package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/domain/trip"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/domain"
)

// Session is the aggregate root owning one browser's trip ledger.
type Session struct {
	id        uuid.UUID
	ledger    *trip.Ledger
	version   int64
	createdAt time.Time
	updatedAt time.Time
	expiresAt time.Time
}

// NewSession creates an empty session that expires after ttl.
func NewSession(ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		return nil, domain.NewValidationError("session ttl must be positive")
	}
	now := time.Now().UTC()
	return &Session{
		id:        uuid.New(),
		ledger:    trip.NewLedger(),
		version:   1,
		createdAt: now,
		updatedAt: now,
		expiresAt: now.Add(ttl),
	}, nil
}

// ReconstructSession rebuilds a Session from persistence data (no validation).
func ReconstructSession(
	id uuid.UUID,
	ledger *trip.Ledger,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
	expiresAt time.Time,
) *Session {
	return &Session{
		id:        id,
		ledger:    ledger,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
		expiresAt: expiresAt,
	}
}

// --- Getters ---

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Ledger returns the session's trip ledger.
func (s *Session) Ledger() *trip.Ledger { return s.ledger }

// Version returns the optimistic locking version.
func (s *Session) Version() int64 { return s.version }

// CreatedAt returns the creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last update timestamp.
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// ExpiresAt returns when the session stops being usable.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// IsExpired returns true if the session has expired at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.expiresAt)
}

// --- Behaviour ---

// Touch records activity and slides the expiry ttl into the future.
func (s *Session) Touch(ttl time.Duration) {
	now := time.Now().UTC()
	s.updatedAt = now
	s.expiresAt = now.Add(ttl)
}

// IncrementVersion bumps the version for optimistic locking.
func (s *Session) IncrementVersion() {
	s.version++
}
