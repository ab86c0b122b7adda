package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/domain"
)

func TestNewSession(t *testing.T) {
	s, err := NewSession(time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, s.ID())
	assert.Equal(t, int64(1), s.Version())
	assert.Equal(t, 0, s.Ledger().Len())
	assert.WithinDuration(t, s.CreatedAt().Add(time.Hour), s.ExpiresAt(), time.Millisecond)
	assert.False(t, s.IsExpired(time.Now()))
	assert.True(t, s.IsExpired(s.ExpiresAt()))

	_, err = NewSession(0)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindValidation, kind)
}

func TestSession_TouchAndVersion(t *testing.T) {
	s, err := NewSession(time.Minute)
	require.NoError(t, err)
	firstExpiry := s.ExpiresAt()

	time.Sleep(2 * time.Millisecond)
	s.Touch(time.Hour)
	s.IncrementVersion()

	assert.True(t, s.ExpiresAt().After(firstExpiry))
	assert.True(t, s.UpdatedAt().After(s.CreatedAt()))
	assert.Equal(t, int64(2), s.Version())
}
