package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/application"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/domain"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/kafka"
)

// LocationPicker handles a tagged map click for a session.
type LocationPicker interface {
	OnLocationPicked(ctx context.Context, sessionID uuid.UUID, req application.LocationPickRequest) (*application.TripDTO, error)
}

// LocationPickConsumer feeds location picks from Kafka into the trip service.
type LocationPickConsumer struct {
	consumer *kafka.Consumer
	picker   LocationPicker
	logger   *zap.Logger
}

// NewLocationPickConsumer creates a new LocationPickConsumer.
func NewLocationPickConsumer(
	brokers []string,
	groupID string,
	topic string,
	picker LocationPicker,
	logger *zap.Logger,
) *LocationPickConsumer {
	return &LocationPickConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, topic, logger),
		picker:   picker,
		logger:   logger,
	}
}

// Start begins consuming location picks. This blocks until the context is cancelled.
func (c *LocationPickConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *LocationPickConsumer) Close() error {
	return c.consumer.Close()
}

func (c *LocationPickConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from location topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	if cloudEvent.Type != TripLocationPicked {
		c.logger.Debug("ignoring unhandled location event type", zap.String("type", cloudEvent.Type))
		return nil
	}

	var evt LocationPickedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse LocationPickedEvent data", zap.Error(err))
		return nil
	}
	if evt.SessionID == uuid.Nil {
		c.logger.Error("location pick without session id", zap.String("event_id", cloudEvent.ID))
		return nil
	}

	t, err := c.picker.OnLocationPicked(ctx, evt.SessionID, application.LocationPickRequest{
		Latitude:  evt.Latitude,
		Longitude: evt.Longitude,
		Kind:      evt.Kind,
	})
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			// Rejected by the ledger or for bad input; a retry gives the same answer.
			c.logger.Warn("location pick rejected",
				zap.String("session_id", evt.SessionID.String()),
				zap.String("kind", evt.Kind),
				zap.String("code", appErr.ErrorCode()),
				zap.String("reason", appErr.Message),
			)
			return nil
		}
		return err
	}

	c.logger.Info("location pick applied",
		zap.String("session_id", evt.SessionID.String()),
		zap.Int64("trip_id", t.ID),
		zap.String("status", t.Status),
	)
	return nil
}
