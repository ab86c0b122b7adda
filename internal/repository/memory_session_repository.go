package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	sessionDomain "github.com/Kilat-Pet-Delivery/service-trip/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/domain"
)

type memoryEntry struct {
	data      []byte
	version   int64
	expiresAt time.Time
}

// MemorySessionRepository keeps encoded sessions in process memory. Each read
// decodes a fresh copy, so callers never share a ledger.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]memoryEntry
	now      func() time.Time
}

// NewMemorySessionRepository creates an empty MemorySessionRepository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[uuid.UUID]memoryEntry),
		now:      time.Now,
	}
}

// FindByID retrieves a live session.
func (r *MemorySessionRepository) FindByID(_ context.Context, id uuid.UUID) (*sessionDomain.Session, error) {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	r.mu.Unlock()

	if !ok || !r.now().Before(entry.expiresAt) {
		return nil, domain.NewNotFoundError("Session", id.String())
	}
	s, _, err := decodeSession(entry.data)
	return s, err
}

// Save persists a new session.
func (r *MemorySessionRepository) Save(_ context.Context, s *sessionDomain.Session) error {
	data, err := encodeSession(s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID()]; exists {
		return domain.NewConflictError("session already exists")
	}
	r.sessions[s.ID()] = memoryEntry{data: data, version: s.Version(), expiresAt: s.ExpiresAt()}
	return nil
}

// Update persists changes if the stored version is Version()-1.
func (r *MemorySessionRepository) Update(_ context.Context, s *sessionDomain.Session) error {
	data, err := encodeSession(s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[s.ID()]
	if !ok || !r.now().Before(entry.expiresAt) {
		return domain.NewNotFoundError("Session", s.ID().String())
	}
	if entry.version != s.Version()-1 {
		return domain.NewConflictError("session was modified by another request")
	}
	r.sessions[s.ID()] = memoryEntry{data: data, version: s.Version(), expiresAt: s.ExpiresAt()}
	return nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *MemorySessionRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// DeleteExpired removes sessions expired at now.
func (r *MemorySessionRepository) DeleteExpired(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []uuid.UUID
	for id, entry := range r.sessions {
		if !now.Before(entry.expiresAt) {
			delete(r.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}

// Ping always succeeds.
func (r *MemorySessionRepository) Ping(context.Context) error { return nil }
