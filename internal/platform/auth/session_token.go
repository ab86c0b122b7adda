// Package auth issues and verifies the signed tokens that bind a browser to
// its trip session.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims are the JWT claims carried by a session token.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionTokenManager signs and parses session tokens with HMAC-SHA256.
type SessionTokenManager struct {
	secret []byte
	issuer string
}

// NewSessionTokenManager creates a SessionTokenManager.
func NewSessionTokenManager(secret, issuer string) (*SessionTokenManager, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("session token secret must be at least 16 bytes")
	}
	return &SessionTokenManager{secret: []byte(secret), issuer: issuer}, nil
}

// Issue returns a token for sessionID that expires at expiresAt.
func (m *SessionTokenManager) Issue(sessionID uuid.UUID, expiresAt time.Time) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   sessionID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Parse verifies a token and returns the session it was issued for.
func (m *SessionTokenManager) Parse(tokenString string) (uuid.UUID, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad session id", ErrInvalidToken)
	}
	return sessionID, nil
}
