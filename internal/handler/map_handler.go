package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/mapview"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/response"
)

// MapHandler upgrades browsers to the map command websocket.
type MapHandler struct {
	hub *mapview.Hub
}

// NewMapHandler creates a new MapHandler.
func NewMapHandler(hub *mapview.Hub) *MapHandler {
	return &MapHandler{hub: hub}
}

// RegisterRoutes registers the websocket route. Browsers pass the session
// token as ?token= since they cannot set headers on the upgrade request.
func (h *MapHandler) RegisterRoutes(r *gin.RouterGroup, tokens *auth.SessionTokenManager) {
	r.GET("/api/v1/map/ws", middleware.SessionAuthMiddleware(tokens), h.Connect)
}

// Connect handles GET /api/v1/map/ws.
func (h *MapHandler) Connect(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return
	}
	h.hub.ServeWS(c.Writer, c.Request, sessionID)
}
