package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	sessionDomain "github.com/Kilat-Pet-Delivery/service-trip/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/domain"
)

const sessionKeyPrefix = "trip:session:"

// RedisSessionRepository stores each session as a JSON value whose key
// expires with the session.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository creates a new RedisSessionRepository.
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

func ttlUntil(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl < time.Millisecond {
		return time.Millisecond
	}
	return ttl
}

// FindByID retrieves a live session.
func (r *RedisSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*sessionDomain.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.NewNotFoundError("Session", id.String())
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s, _, err := decodeSession(raw)
	return s, err
}

// Save persists a new session.
func (r *RedisSessionRepository) Save(ctx context.Context, s *sessionDomain.Session) error {
	data, err := encodeSession(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	created, err := r.client.SetNX(ctx, sessionKey(s.ID()), data, ttlUntil(s.ExpiresAt())).Result()
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if !created {
		return domain.NewConflictError("session already exists")
	}
	return nil
}

// Update persists changes with optimistic locking on the stored version.
func (r *RedisSessionRepository) Update(ctx context.Context, s *sessionDomain.Session) error {
	data, err := encodeSession(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	key := sessionKey(s.ID())

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.NewNotFoundError("Session", s.ID().String())
			}
			return fmt.Errorf("failed to get session: %w", err)
		}
		_, stored, err := decodeSession(raw)
		if err != nil {
			return err
		}
		if stored != s.Version()-1 {
			return domain.NewConflictError("session was modified by another request")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttlUntil(s.ExpiresAt()))
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return domain.NewConflictError("session was modified by another request")
	}
	return err
}

// Delete removes a session.
func (r *RedisSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis expires session keys on its own.
func (r *RedisSessionRepository) DeleteExpired(context.Context, time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

// Ping checks the Redis connection.
func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
