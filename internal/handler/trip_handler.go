package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/application"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/domain/trip"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/response"
)

// TripHandler handles HTTP requests for trip operations.
type TripHandler struct {
	service *application.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(service *application.TripService) *TripHandler {
	return &TripHandler{service: service}
}

// RegisterRoutes registers all trip routes on the given router group.
func (h *TripHandler) RegisterRoutes(r *gin.RouterGroup, tokens *auth.SessionTokenManager) {
	trips := r.Group("/api/v1/trips")
	trips.Use(middleware.SessionAuthMiddleware(tokens))
	{
		trips.POST("/locations", h.PickLocation)
		trips.POST("/pickup", h.RecordPickup)
		trips.POST("/dropoff", h.RecordDropoff)
		trips.GET("", h.ListTrips)
		trips.GET("/:id", h.GetTrip)
		trips.POST("/:id/route", h.ShowRoute)
	}
}

// PickLocation handles POST /api/v1/trips/locations.
func (h *TripHandler) PickLocation(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return
	}

	var req application.LocationPickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.OnLocationPicked(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondTrip(c, result)
}

// RecordPickup handles POST /api/v1/trips/pickup.
func (h *TripHandler) RecordPickup(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return
	}

	var req application.CoordinateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RecordPickup(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// RecordDropoff handles POST /api/v1/trips/dropoff.
func (h *TripHandler) RecordDropoff(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return
	}

	var req application.CoordinateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RecordDropoff(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListTrips handles GET /api/v1/trips?sort=fare&order=asc[&select=distance].
// select applies the list header toggle to the current sort.
func (h *TripHandler) ListTrips(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return
	}

	order, err := parseSort(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ListTrips(c.Request.Context(), sessionID, order)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetTrip handles GET /api/v1/trips/:id.
func (h *TripHandler) GetTrip(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return
	}

	tripID, ok := parseTripID(c)
	if !ok {
		return
	}

	result, err := h.service.GetTrip(c.Request.Context(), sessionID, tripID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ShowRoute handles POST /api/v1/trips/:id/route.
func (h *TripHandler) ShowRoute(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return
	}

	tripID, ok := parseTripID(c)
	if !ok {
		return
	}

	result, err := h.service.ShowRoute(c.Request.Context(), sessionID, tripID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func respondTrip(c *gin.Context, result *application.TripDTO) {
	if result.Status == application.TripStatusOpen {
		response.Created(c, result)
		return
	}
	response.Success(c, result)
}

func parseTripID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid trip ID")
		return 0, false
	}
	return id, true
}

func parseSort(c *gin.Context) (trip.Sort, error) {
	order := trip.DefaultSort()

	if raw := c.Query("sort"); raw != "" {
		field, err := trip.ParseSortField(raw)
		if err != nil {
			return trip.Sort{}, err
		}
		order.Field = field
	}
	if raw := c.Query("order"); raw != "" {
		dir, err := trip.ParseSortDirection(raw)
		if err != nil {
			return trip.Sort{}, err
		}
		order.Direction = dir
	}
	if raw := c.Query("select"); raw != "" {
		field, err := trip.ParseSortField(raw)
		if err != nil {
			return trip.Sort{}, err
		}
		order = order.Select(field)
	}
	return order, nil
}
