package repository

import (
	"context"
	"time"

	"jules-backend/internal/domain/entity"
)

// MigrationRepository stores the migration ledger. Get returns (nil, nil) on a miss.
type MigrationRepository interface {
	Record(ctx context.Context, rec *entity.MigrationRecord) error
	Get(ctx context.Context, sessionID string) (*entity.MigrationRecord, error)
	MarkRolledBack(ctx context.Context, sessionID string, at time.Time) error
}
