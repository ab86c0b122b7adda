package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	sessionDomain "github.com/Kilat-Pet-Delivery/service-trip/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/domain"
)

// SessionModel is the GORM model for the trip_sessions table.
type SessionModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Trips      json.RawMessage `gorm:"type:jsonb;not null"`
	LastTripID int64           `gorm:"not null;default:0"`
	Version    int64           `gorm:"not null;default:1"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
	ExpiresAt  time.Time       `gorm:"not null;index"`
}

// TableName sets the table name for GORM.
func (SessionModel) TableName() string { return "trip_sessions" }

// GormSessionRepository implements SessionRepository using GORM.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindByID retrieves a live session.
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*sessionDomain.Session, error) {
	var model SessionModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, time.Now().UTC()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Session", id.String())
		}
		return nil, fmt.Errorf("failed to find session by ID: %w", err)
	}
	return toDomainSession(&model)
}

// Save persists a new session.
func (r *GormSessionRepository) Save(ctx context.Context, s *sessionDomain.Session) error {
	model, err := toSessionModel(s)
	if err != nil {
		return fmt.Errorf("failed to convert session to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("session already exists")
		}
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Update persists changes to an existing session with optimistic locking.
func (r *GormSessionRepository) Update(ctx context.Context, s *sessionDomain.Session) error {
	model, err := toSessionModel(s)
	if err != nil {
		return fmt.Errorf("failed to convert session to model: %w", err)
	}

	// The caller has already incremented the version.
	expectedVersion := s.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"trips":        model.Trips,
			"last_trip_id": model.LastTripID,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
			"expires_at":   model.ExpiresAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("session was modified by another request")
	}
	return nil
}

// Delete removes a session.
func (r *GormSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&SessionModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions expired at now and returns their ids.
func (r *GormSessionRepository) DeleteExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var deleted []SessionModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("expires_at <= ?", now).
		Delete(&deleted).Error
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	ids := make([]uuid.UUID, len(deleted))
	for i, m := range deleted {
		ids[i] = m.ID
	}
	return ids, nil
}

// Ping checks the database connection.
func (r *GormSessionRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// --- Mapping helpers ---

func toSessionModel(s *sessionDomain.Session) (*SessionModel, error) {
	trips, err := encodeTrips(s.Ledger())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trips: %w", err)
	}
	return &SessionModel{
		ID:         s.ID(),
		Trips:      trips,
		LastTripID: s.Ledger().LastID(),
		Version:    s.Version(),
		CreatedAt:  s.CreatedAt(),
		UpdatedAt:  s.UpdatedAt(),
		ExpiresAt:  s.ExpiresAt(),
	}, nil
}

func toDomainSession(m *SessionModel) (*sessionDomain.Session, error) {
	ledger, err := decodeTrips(m.Trips)
	if err != nil {
		return nil, fmt.Errorf("session %s holds an invalid ledger: %w", m.ID, err)
	}
	if ledger.LastID() != m.LastTripID {
		return nil, fmt.Errorf("session %s: last trip id %d does not match stored %d", m.ID, ledger.LastID(), m.LastTripID)
	}
	return sessionDomain.ReconstructSession(m.ID, ledger, m.Version, m.CreatedAt, m.UpdatedAt, m.ExpiresAt), nil
}
