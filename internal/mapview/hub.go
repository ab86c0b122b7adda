// Package mapview pushes map drawing commands to browsers over websockets.
package mapview

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mmcloughlin/geohash"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/application"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/domain/trip"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/domain"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 64

	// MarkerCellPrecision is the geohash length sent with every marker.
	MarkerCellPrecision = 7
)

// Frame types sent to and received from the browser.
const (
	FramePlaceMarker    = "place_marker"
	FrameDrawRoute      = "draw_route"
	FrameRemoveRoute    = "remove_route"
	FrameTripsChanged   = "trips_changed"
	FrameError          = "error"
	FrameLocationPicked = "location_picked"
)

// Frame is the envelope of every websocket message.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarkerData is the payload of a place_marker frame.
type MarkerData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Kind      string  `json:"kind"`
	Cell      string  `json:"cell"`
}

// RouteData is the payload of draw_route and remove_route frames.
type RouteData struct {
	Route   string                     `json:"route"`
	Pickup  *application.CoordinateDTO `json:"pickup,omitempty"`
	Dropoff *application.CoordinateDTO `json:"dropoff,omitempty"`
}

// TripsData is the payload of a trips_changed frame.
type TripsData struct {
	Action string                `json:"action"`
	Trip   application.TripDTO   `json:"trip"`
	Trips  []application.TripDTO `json:"trips"`
}

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LocationPicker handles location_picked frames sent by the browser.
type LocationPicker interface {
	OnLocationPicked(ctx context.Context, sessionID uuid.UUID, req application.LocationPickRequest) (*application.TripDTO, error)
}

type client struct {
	id        uuid.UUID
	sessionID uuid.UUID
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
}

// Hub tracks the websocket connections of every session.
type Hub struct {
	clients  map[uuid.UUID]*client
	stopped  bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	picker   LocationPicker
	logger   *zap.Logger
}

// NewHub creates a Hub. Clients are accepted until Run's context ends.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// SetLocationPicker enables location_picked frames from browsers.
func (h *Hub) SetLocationPicker(picker LocationPicker) {
	h.picker = picker
}

// Run blocks until ctx is cancelled, then closes every socket. Connections
// arriving after that are refused with a going-away close frame.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	h.stopped = true
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
	h.mu.Unlock()
	h.logger.Info("map hub stopped")
}

// ServeWS upgrades an authenticated request to a websocket for sessionID.
// The client is registered before its pumps start, so replies to the first
// frame it sends are never dropped.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:        uuid.New(),
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		hub:       h,
	}
	if !h.add(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "map hub stopped"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.logger.Debug("map client registered",
		zap.String("client_id", c.id.String()),
		zap.String("session_id", sessionID.String()),
	)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	if ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.logger.Debug("map client unregistered", zap.String("client_id", c.id.String()))
	}
}

// ConnectedClients returns the number of open sockets for a session.
func (h *Hub) ConnectedClients(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.clients {
		if c.sessionID == sessionID {
			n++
		}
	}
	return n
}

// --- application.MapRenderer ---

// PlaceMarker sends a place_marker frame.
func (h *Hub) PlaceMarker(_ context.Context, sessionID uuid.UUID, coord trip.Coordinate, kind trip.LocationKind) error {
	return h.sendJSON(sessionID, FramePlaceMarker, MarkerData{
		Latitude:  coord.Latitude(),
		Longitude: coord.Longitude(),
		Kind:      kind.String(),
		Cell:      geohash.EncodeWithPrecision(coord.Latitude(), coord.Longitude(), MarkerCellPrecision),
	})
}

// DrawRoute sends a draw_route frame and returns the route's handle.
func (h *Hub) DrawRoute(_ context.Context, sessionID uuid.UUID, pickup, dropoff trip.Coordinate) (application.RouteHandle, error) {
	handle := application.RouteHandle(uuid.NewString())
	p := application.CoordinateDTO{Latitude: pickup.Latitude(), Longitude: pickup.Longitude()}
	d := application.CoordinateDTO{Latitude: dropoff.Latitude(), Longitude: dropoff.Longitude()}
	if err := h.sendJSON(sessionID, FrameDrawRoute, RouteData{Route: string(handle), Pickup: &p, Dropoff: &d}); err != nil {
		return "", err
	}
	return handle, nil
}

// RemoveRoute sends a remove_route frame.
func (h *Hub) RemoveRoute(_ context.Context, sessionID uuid.UUID, handle application.RouteHandle) error {
	return h.sendJSON(sessionID, FrameRemoveRoute, RouteData{Route: string(handle)})
}

// --- application.TripsListener ---

// TripsChanged sends a trips_changed frame with the ordered trip list.
func (h *Hub) TripsChanged(_ context.Context, change application.TripsChange) error {
	return h.sendJSON(change.SessionID, FrameTripsChanged, TripsData{
		Action: change.Action,
		Trip:   change.Trip,
		Trips:  change.Trips,
	})
}

func encodeFrame(frameType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameType, Data: raw})
}

// sendJSON queues a frame for every socket of the session. Sessions with no
// socket drop the frame.
func (h *Hub) sendJSON(sessionID uuid.UUID, frameType string, data any) error {
	msg, err := encodeFrame(frameType, data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.sessionID != sessionID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("map client send buffer full, dropping frame",
				zap.String("client_id", c.id.String()),
				zap.String("type", frameType),
			)
		}
	}
	return nil
}

func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.String("client_id", c.id.String()), zap.Error(err))
			}
			return
		}
		c.handleFrame(message)
	}
}

func (c *client) handleFrame(message []byte) {
	var frame Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.reply(FrameError, ErrorData{Code: string(domain.KindValidation), Message: "malformed frame"})
		return
	}
	if frame.Type != FrameLocationPicked || c.hub.picker == nil {
		c.reply(FrameError, ErrorData{Code: string(domain.KindValidation), Message: "unsupported frame type: " + frame.Type})
		return
	}

	var req application.LocationPickRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		c.reply(FrameError, ErrorData{Code: string(domain.KindValidation), Message: "malformed location"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if _, err := c.hub.picker.OnLocationPicked(ctx, c.sessionID, req); err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			c.reply(FrameError, ErrorData{Code: appErr.ErrorCode(), Message: appErr.Message})
			return
		}
		c.hub.logger.Error("location pick failed", zap.String("session_id", c.sessionID.String()), zap.Error(err))
		c.reply(FrameError, ErrorData{Code: "INTERNAL_ERROR", Message: "internal server error"})
	}
}

// reply queues a frame for this socket only.
func (c *client) reply(frameType string, data any) {
	msg, err := encodeFrame(frameType, data)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
