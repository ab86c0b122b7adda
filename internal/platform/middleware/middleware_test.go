package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokens(t *testing.T) *auth.SessionTokenManager {
	t.Helper()
	tokens, err := auth.NewSessionTokenManager("0123456789abcdef0123456789abcdef", "service-trip")
	require.NoError(t, err)
	return tokens
}

func TestSessionAuthMiddleware(t *testing.T) {
	tokens := newTokens(t)
	sessionID := uuid.New()
	token, err := tokens.Issue(sessionID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	router := gin.New()
	router.Use(SessionAuthMiddleware(tokens))
	router.GET("/whoami", func(c *gin.Context) {
		id, ok := GetSessionID(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.String())
	})

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{name: "bearer header", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + token, wantStatus: http.StatusOK},
		{name: "query parameter", query: "?token=" + token, wantStatus: http.StatusOK},
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "invalid", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, sessionID.String(), w.Body.String())
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.NewNop()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}
