package repository

import (
	"context"
	"time"

	"jules-backend/internal/domain/entity"
)

// SessionRepository persists anonymous sessions.
// Get returns (nil, nil) when no record exists, regardless of expiry.
// GetForUpdate behaves like Get and additionally locks the record for the
// rest of the surrounding transaction where the backend supports it.
// Create returns entity.ErrDuplicateSession on an id collision and
// IncrementUsage returns entity.ErrSessionNotFound when the record is absent.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.AnonymousSession) error
	Get(ctx context.Context, sessionID string) (*entity.AnonymousSession, error)
	GetForUpdate(ctx context.Context, sessionID string) (*entity.AnonymousSession, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	IncrementUsage(ctx context.Context, sessionID string, feature entity.Feature, at time.Time) (int, error)
	ExtendExpiry(ctx context.Context, sessionID string, expiresAt time.Time) (bool, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)
	CountExpired(ctx context.Context, now time.Time) (int64, error)
	CountTotal(ctx context.Context) (int64, error)
}
