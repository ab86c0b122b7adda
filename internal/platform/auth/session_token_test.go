package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewSessionTokenManager_ShortSecret(t *testing.T) {
	_, err := NewSessionTokenManager("short", "service-trip")
	assert.Error(t, err)
}

func TestSessionTokenManager_IssueAndParse(t *testing.T) {
	m, err := NewSessionTokenManager(testSecret, "service-trip")
	require.NoError(t, err)

	sessionID := uuid.New()
	token, err := m.Issue(sessionID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	parsed, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, sessionID, parsed)
}

func TestSessionTokenManager_Parse(t *testing.T) {
	m, err := NewSessionTokenManager(testSecret, "service-trip")
	require.NoError(t, err)
	other, err := NewSessionTokenManager("ffffffffffffffffffffffffffffffff", "service-trip")
	require.NoError(t, err)
	otherIssuer, err := NewSessionTokenManager(testSecret, "someone-else")
	require.NoError(t, err)

	expired, err := m.Issue(uuid.New(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	foreign, err := other.Issue(uuid.New(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	wrongIssuer, err := otherIssuer.Issue(uuid.New(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired},
		{name: "signed with another secret", token: foreign},
		{name: "wrong issuer", token: wrongIssuer},
		{name: "garbage", token: "not-a-jwt"},
		{name: "empty", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
