//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/application"
	sessionDomain "github.com/Kilat-Pet-Delivery/service-trip/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/domain/trip"
	tripEvents "github.com/Kilat-Pet-Delivery/service-trip/internal/events"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/domain"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/repository"
)

func kindOf(err error) domain.ErrorKind {
	kind, _ := domain.KindOf(err)
	return kind
}

func sessionWithOpenTrip(t *testing.T, ttl time.Duration) *sessionDomain.Session {
	t.Helper()
	s, err := sessionDomain.NewSession(ttl)
	require.NoError(t, err)
	c, err := trip.NewCoordinate(3.139, 101.6869)
	require.NoError(t, err)
	_, err = s.Ledger().RecordPickup(c)
	require.NoError(t, err)
	return s
}

// TestLocationPicks_CloseTripAndPublish verifies that pickup and dropoff picks
// published to trip.location-picks close a trip in PostgreSQL and that a
// dropoff event with the priced trip reaches trip.events.
func TestLocationPicks_CloseTripAndPublish(t *testing.T) {
	db := setupPostgres(t)
	brokers := setupKafka(t)

	store := repository.NewGormSessionRepository(db)
	stack := setupTripStack(t, store, brokers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := stack.Service.CreateSession(ctx)
	require.NoError(t, err)

	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	sid := created.SessionID
	pickLat, pickLng := -6.2729, 106.7893
	dropLat, dropLng := -6.2000, 106.8000
	publishTestEvent(t, brokers, locationPicksTopic, "map-ui", tripEvents.TripLocationPicked, sid.String(),
		tripEvents.LocationPickedEvent{SessionID: sid, Latitude: &pickLat, Longitude: &pickLng, Kind: "pickup"})
	publishTestEvent(t, brokers, locationPicksTopic, "map-ui", tripEvents.TripLocationPicked, sid.String(),
		tripEvents.LocationPickedEvent{SessionID: sid, Latitude: &dropLat, Longitude: &dropLng, Kind: "dropoff"})

	// Assert: the session's only trip is closed and priced.
	require.Eventually(t, func() bool {
		list, err := stack.Service.ListTrips(ctx, sid, trip.DefaultSort())
		return err == nil && len(list.Trips) == 1 && list.Trips[0].Status == application.TripStatusClosed
	}, 20*time.Second, 200*time.Millisecond, "trip was not closed")

	got, err := stack.Service.GetTrip(ctx, sid, 1)
	require.NoError(t, err)
	assert.Equal(t, 11.19, *got.Fare)
	assert.Equal(t, 12, *got.EstimatedTimeMinutes)

	// Assert: dropoff event on trip.events.
	ce := consumeOneEvent(t, brokers, tripEventsTopic, tripEvents.TripDropoffRecorded, 15*time.Second)
	assert.Equal(t, sid.String(), ce.Subject)

	var evt tripEvents.TripsChangedEvent
	require.NoError(t, ce.ParseData(&evt))
	assert.Equal(t, sid, evt.SessionID)
	assert.Equal(t, int64(1), evt.Trip.ID)
	require.NotNil(t, evt.Trip.DistanceKm)
	assert.Equal(t, 8.19, *evt.Trip.DistanceKm)
	assert.Len(t, evt.Trips, 1)
}

func TestGormSessionRepository(t *testing.T) {
	db := setupPostgres(t)
	repo := repository.NewGormSessionRepository(db)
	ctx := context.Background()

	s := sessionWithOpenTrip(t, time.Hour)
	require.NoError(t, repo.Save(ctx, s))
	assert.Equal(t, domain.KindConflict, kindOf(repo.Save(ctx, s)))

	found, err := repo.FindByID(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, trip.KindDropoff, found.Ledger().NextExpected())
	assert.Equal(t, int64(1), found.Ledger().LastID())

	stale, err := repo.FindByID(ctx, s.ID())
	require.NoError(t, err)

	found.IncrementVersion()
	require.NoError(t, repo.Update(ctx, found))

	stale.IncrementVersion()
	assert.Equal(t, domain.KindConflict, kindOf(repo.Update(ctx, stale)))

	expired := sessionWithOpenTrip(t, time.Millisecond)
	require.NoError(t, repo.Save(ctx, expired))
	time.Sleep(10 * time.Millisecond)

	_, err = repo.FindByID(ctx, expired.ID())
	assert.Equal(t, domain.KindNotFound, kindOf(err))

	removed, err := repo.DeleteExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{expired.ID()}, removed)

	require.NoError(t, repo.Delete(ctx, s.ID()))
	_, err = repo.FindByID(ctx, s.ID())
	assert.Equal(t, domain.KindNotFound, kindOf(err))
	assert.NoError(t, repo.Ping(ctx))
}

func TestRedisSessionRepository(t *testing.T) {
	client := setupRedis(t)
	repo := repository.NewRedisSessionRepository(client)
	ctx := context.Background()

	s := sessionWithOpenTrip(t, time.Hour)
	require.NoError(t, repo.Save(ctx, s))
	assert.Equal(t, domain.KindConflict, kindOf(repo.Save(ctx, s)))

	found, err := repo.FindByID(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, found.Ledger().Len())

	stale, err := repo.FindByID(ctx, s.ID())
	require.NoError(t, err)

	found.IncrementVersion()
	require.NoError(t, repo.Update(ctx, found))

	stale.IncrementVersion()
	assert.Equal(t, domain.KindConflict, kindOf(repo.Update(ctx, stale)))

	expiring := sessionWithOpenTrip(t, 500*time.Millisecond)
	require.NoError(t, repo.Save(ctx, expiring))
	require.Eventually(t, func() bool {
		_, err := repo.FindByID(ctx, expiring.ID())
		return kindOf(err) == domain.KindNotFound
	}, 5*time.Second, 100*time.Millisecond, "session key did not expire")

	require.NoError(t, repo.Delete(ctx, s.ID()))
	_, err = repo.FindByID(ctx, s.ID())
	assert.Equal(t, domain.KindNotFound, kindOf(err))
	assert.NoError(t, repo.Ping(ctx))
}
