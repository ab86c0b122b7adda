package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/application"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/response"
)

// SessionHandler handles HTTP requests for session lifecycle.
type SessionHandler struct {
	service *application.TripService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(service *application.TripService) *SessionHandler {
	return &SessionHandler{service: service}
}

// RegisterRoutes registers all session routes on the given router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup, tokens *auth.SessionTokenManager) {
	sessions := r.Group("/api/v1/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.DELETE("/current", middleware.SessionAuthMiddleware(tokens), h.EndSession)
	}
}

// CreateSession handles POST /api/v1/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	result, err := h.service.CreateSession(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// EndSession handles DELETE /api/v1/sessions/current.
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return
	}

	if err := h.service.EndSession(c.Request.Context(), sessionID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
