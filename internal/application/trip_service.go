package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sessionDomain "github.com/Kilat-Pet-Delivery/service-trip/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/domain/trip"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/domain"
)

// User-facing messages for the two ledger errors a user can cause.
const (
	msgPickupWhileOpen = "This trip already has a pickup and cannot add another."
	msgNoOpenTrip      = "Please select a pickup before adding a dropoff."
)

type routeEntry struct {
	handle    RouteHandle
	expiresAt time.Time
}

// routeRegistry remembers the route currently drawn for each session.
type routeRegistry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]routeEntry
}

func newRouteRegistry() *routeRegistry {
	return &routeRegistry{entries: make(map[uuid.UUID]routeEntry)}
}

func (r *routeRegistry) swap(sessionID uuid.UUID, handle RouteHandle, expiresAt time.Time) (RouteHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.entries[sessionID]
	r.entries[sessionID] = routeEntry{handle: handle, expiresAt: expiresAt}
	return prev.handle, ok
}

func (r *routeRegistry) take(sessionID uuid.UUID) (RouteHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	return prev.handle, ok
}

func (r *routeRegistry) prune(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.entries {
		if !now.Before(e.expiresAt) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// TripService is the application service orchestrating trip use cases.
type TripService struct {
	sessions   sessionDomain.SessionRepository
	estimator  trip.FareEstimator
	tokens     TokenIssuer
	renderer   MapRenderer
	listeners  []TripsListener
	routes     *routeRegistry
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewTripService creates a new TripService.
func NewTripService(
	sessions sessionDomain.SessionRepository,
	estimator trip.FareEstimator,
	tokens TokenIssuer,
	renderer MapRenderer,
	sessionTTL time.Duration,
	logger *zap.Logger,
	listeners ...TripsListener,
) *TripService {
	return &TripService{
		sessions:   sessions,
		estimator:  estimator,
		tokens:     tokens,
		renderer:   renderer,
		listeners:  listeners,
		routes:     newRouteRegistry(),
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// CreateSession starts a session with an empty ledger and signs its token.
func (s *TripService) CreateSession(ctx context.Context) (*SessionDTO, error) {
	sess, err := sessionDomain.NewSession(s.sessionTTL)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(sess.ID(), sess.ExpiresAt())
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("session created",
		zap.String("session_id", sess.ID().String()),
		zap.Time("expires_at", sess.ExpiresAt()),
	)

	return &SessionDTO{SessionID: sess.ID(), Token: token, ExpiresAt: sess.ExpiresAt()}, nil
}

// EndSession discards a session's trips and clears its route.
func (s *TripService) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if handle, ok := s.routes.take(sessionID); ok {
		s.removeRoute(ctx, sessionID, handle)
	}
	s.logger.Info("session ended", zap.String("session_id", sessionID.String()))
	return nil
}

// OnLocationPicked routes a tagged map click to RecordPickup or RecordDropoff.
func (s *TripService) OnLocationPicked(ctx context.Context, sessionID uuid.UUID, req LocationPickRequest) (*TripDTO, error) {
	kind, err := trip.ParseLocationKind(req.Kind)
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("kind must be %q or %q", trip.KindPickup, trip.KindDropoff)).WithCause(err)
	}

	coord := CoordinateRequest{Latitude: req.Latitude, Longitude: req.Longitude}
	if kind == trip.KindPickup {
		return s.RecordPickup(ctx, sessionID, coord)
	}
	return s.RecordDropoff(ctx, sessionID, coord)
}

// RecordPickup opens a new trip at the given coordinate.
func (s *TripService) RecordPickup(ctx context.Context, sessionID uuid.UUID, req CoordinateRequest) (*TripDTO, error) {
	coord, err := toCoordinate(req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}

	sess, opened, err := s.mutate(ctx, sessionID, func(l *trip.Ledger) (*trip.Trip, error) {
		return l.RecordPickup(coord)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pickup recorded",
		zap.String("session_id", sessionID.String()),
		zap.Int64("trip_id", opened.ID()),
	)

	s.placeMarker(ctx, sessionID, coord, trip.KindPickup)

	result := toTripDTO(opened)
	s.notify(ctx, sess, ActionPickupRecorded, result)
	return &result, nil
}

// RecordDropoff closes the open trip, prices it and draws its route.
func (s *TripService) RecordDropoff(ctx context.Context, sessionID uuid.UUID, req CoordinateRequest) (*TripDTO, error) {
	coord, err := toCoordinate(req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}

	sess, closed, err := s.mutate(ctx, sessionID, func(l *trip.Ledger) (*trip.Trip, error) {
		return l.RecordDropoff(coord, s.estimator)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dropoff recorded",
		zap.String("session_id", sessionID.String()),
		zap.Int64("trip_id", closed.ID()),
		zap.Float64("distance_km", RoundTo2(closed.DistanceKm())),
		zap.Float64("fare", RoundTo2(closed.Fare())),
	)

	s.placeMarker(ctx, sessionID, coord, trip.KindDropoff)
	s.drawRoute(ctx, sess, closed)

	result := toTripDTO(closed)
	s.notify(ctx, sess, ActionDropoffRecorded, result)
	return &result, nil
}

// ListTrips returns a sorted copy of the session's trips.
func (s *TripService) ListTrips(ctx context.Context, sessionID uuid.UUID, order trip.Sort) (*TripListDTO, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sorted := trip.SortTrips(sess.Ledger().ListTrips(), order)
	return &TripListDTO{
		Trips:        toTripDTOs(sorted),
		Count:        len(sorted),
		Sort:         string(order.Field),
		Order:        string(order.Direction),
		NextExpected: sess.Ledger().NextExpected().String(),
	}, nil
}

// GetTrip returns one trip of the session.
func (s *TripService) GetTrip(ctx context.Context, sessionID uuid.UUID, tripID int64) (*TripDTO, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	t, err := sess.Ledger().FindTrip(tripID)
	if err != nil {
		return nil, translateTripError(err, tripID)
	}

	result := toTripDTO(t)
	return &result, nil
}

// ShowRoute replaces the drawn route with the route of a closed trip.
func (s *TripService) ShowRoute(ctx context.Context, sessionID uuid.UUID, tripID int64) (*TripDTO, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	t, err := sess.Ledger().FindTrip(tripID)
	if err != nil {
		return nil, translateTripError(err, tripID)
	}
	if t.IsOpen() {
		return nil, translateTripError(trip.ErrTripNotClosed, tripID)
	}

	s.drawRoute(ctx, sess, t)

	result := toTripDTO(t)
	return &result, nil
}

// SweepExpired deletes expired sessions and forgets their routes.
func (s *TripService) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	removed, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	for _, id := range removed {
		s.routes.take(id)
	}
	pruned := s.routes.prune(now)

	if len(removed) > 0 || pruned > 0 {
		s.logger.Info("expired sessions swept",
			zap.Int("sessions", len(removed)),
			zap.Int("routes", pruned),
		)
	}
	return len(removed), nil
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func (s *TripService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("session sweep failed", zap.Error(err))
			}
		}
	}
}

// mutate loads the session, applies op to its ledger and saves it. Nothing is
// saved when op fails.
func (s *TripService) mutate(
	ctx context.Context,
	sessionID uuid.UUID,
	op func(*trip.Ledger) (*trip.Trip, error),
) (*sessionDomain.Session, *trip.Trip, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	t, err := op(sess.Ledger())
	if err != nil {
		return nil, nil, translateTripError(err, 0)
	}

	sess.Touch(s.sessionTTL)
	sess.IncrementVersion()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("failed to update session: %w", err)
	}
	return sess, t, nil
}

func (s *TripService) placeMarker(ctx context.Context, sessionID uuid.UUID, coord trip.Coordinate, kind trip.LocationKind) {
	if err := s.renderer.PlaceMarker(ctx, sessionID, coord, kind); err != nil {
		s.logger.Warn("failed to place marker",
			zap.String("session_id", sessionID.String()),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
	}
}

func (s *TripService) drawRoute(ctx context.Context, sess *sessionDomain.Session, t *trip.Trip) {
	dropoff := t.Dropoff()
	if dropoff == nil {
		return
	}

	handle, err := s.renderer.DrawRoute(ctx, sess.ID(), t.Pickup(), *dropoff)
	if err != nil {
		s.logger.Warn("failed to draw route",
			zap.String("session_id", sess.ID().String()),
			zap.Int64("trip_id", t.ID()),
			zap.Error(err),
		)
		return
	}

	if prev, ok := s.routes.swap(sess.ID(), handle, sess.ExpiresAt()); ok && prev != handle {
		s.removeRoute(ctx, sess.ID(), prev)
	}
}

func (s *TripService) removeRoute(ctx context.Context, sessionID uuid.UUID, handle RouteHandle) {
	if err := s.renderer.RemoveRoute(ctx, sessionID, handle); err != nil {
		s.logger.Warn("failed to remove route",
			zap.String("session_id", sessionID.String()),
			zap.String("route", string(handle)),
			zap.Error(err),
		)
	}
}

func (s *TripService) notify(ctx context.Context, sess *sessionDomain.Session, action string, changed TripDTO) {
	if len(s.listeners) == 0 {
		return
	}
	change := TripsChange{
		SessionID:  sess.ID(),
		Action:     action,
		Trip:       changed,
		Trips:      toTripDTOs(sess.Ledger().ListTrips()),
		OccurredAt: time.Now().UTC(),
	}
	for _, l := range s.listeners {
		if err := l.TripsChanged(ctx, change); err != nil {
			s.logger.Warn("trips listener failed",
				zap.String("session_id", sess.ID().String()),
				zap.String("action", action),
				zap.Error(err),
			)
		}
	}
}

// translateTripError maps ledger errors to application errors.
func translateTripError(err error, tripID int64) error {
	switch {
	case errors.Is(err, trip.ErrPickupWhileOpen):
		return domain.NewConflictError(msgPickupWhileOpen).WithCode("PICKUP_WHILE_OPEN").WithCause(err)
	case errors.Is(err, trip.ErrNoOpenTrip):
		return domain.NewConflictError(msgNoOpenTrip).WithCode("NO_OPEN_TRIP").WithCause(err)
	case errors.Is(err, trip.ErrTripNotFound):
		return domain.NewNotFoundError("Trip", strconv.FormatInt(tripID, 10)).WithCause(err)
	case errors.Is(err, trip.ErrTripNotClosed):
		return domain.NewInvalidStateError(TripStatusOpen, TripStatusClosed).
			WithCode("TRIP_NOT_CLOSED").
			WithCause(err)
	case errors.Is(err, trip.ErrInvalidCoordinates):
		return invalidCoordinates(err)
	default:
		return err
	}
}
