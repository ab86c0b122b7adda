package kafka

import (
	"context"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	maxHandleAttempts = 3
	retryBackoff      = 500 * time.Millisecond
)

// MessageHandler processes one message. A returned error is retried a few
// times before the message is committed anyway.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	reader *kafkago.Reader
	topic  string
	logger *zap.Logger
}

// NewConsumer creates a Consumer. No connection is made until Consume is called.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Consumer{reader: reader, topic: topic, logger: logger}
}

// Consume blocks, handing each message to handler, until ctx is cancelled.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			c.logger.Error("failed to fetch message", zap.String("topic", c.topic), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
			continue
		}

		c.handle(ctx, handler, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message",
				zap.String("topic", c.topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, handler MessageHandler, msg kafkago.Message) {
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		err := handler(ctx, msg)
		if err == nil {
			return
		}
		c.logger.Warn("message handler failed",
			zap.String("topic", c.topic),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == maxHandleAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	c.logger.Error("giving up on message",
		zap.String("topic", c.topic),
		zap.Int64("offset", msg.Offset),
	)
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
