package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/application"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/kafka"
)

// EventPublisher publishes a CloudEvent to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// TripPublisher publishes trip list changes to Kafka.
type TripPublisher struct {
	publisher EventPublisher
	topic     string
	logger    *zap.Logger
}

// NewTripPublisher creates a new TripPublisher.
func NewTripPublisher(publisher EventPublisher, topic string, logger *zap.Logger) *TripPublisher {
	return &TripPublisher{publisher: publisher, topic: topic, logger: logger}
}

// TripsChanged publishes the change keyed by session so a session's events stay ordered.
func (p *TripPublisher) TripsChanged(ctx context.Context, change application.TripsChange) error {
	eventType := eventTypeFor(change.Action)
	ce, err := kafka.NewCloudEvent(Source, eventType, TripsChangedEvent{
		SessionID:  change.SessionID,
		Trip:       change.Trip,
		Trips:      change.Trips,
		OccurredAt: change.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}
	ce.Subject = change.SessionID.String()

	if err := p.publisher.PublishEvent(ctx, p.topic, ce); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	p.logger.Debug("trip event published",
		zap.String("type", eventType),
		zap.String("session_id", change.SessionID.String()),
		zap.Int64("trip_id", change.Trip.ID),
	)
	return nil
}
