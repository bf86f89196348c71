package repository

import (
	"context"
	"time"

	"jules-backend/internal/domain/entity"
)

// OwnedContentRepository holds the ownership operations shared by every
// content type that can belong to an anonymous session.
type OwnedContentRepository interface {
	// MigrateOwner re-points all content owned by the anonymous session to
	// the user, stamping migratedAt and the origin session. It returns the
	// number of records moved.
	MigrateOwner(ctx context.Context, sessionID, userID string, at time.Time) (int64, error)
	// RestoreOwner reverses MigrateOwner for content that came from sessionID.
	RestoreOwner(ctx context.Context, userID, sessionID string) (int64, error)
	DeleteByOwner(ctx context.Context, owner entity.Owner) (int64, error)
	CountByOwner(ctx context.Context, owner entity.Owner) (int64, error)
	CountTotal(ctx context.Context) (int64, error)
	// ListOrphanedOwners returns up to limit session ids that own content but
	// have no session record. Sessions whose migration was rolled back are
	// left out, since rollback hands content back without recreating them.
	ListOrphanedOwners(ctx context.Context, limit int) ([]string, error)
}

type FitCheckRepository interface {
	OwnedContentRepository
	Create(ctx context.Context, fc *entity.FitCheck) error
	Get(ctx context.Context, id string) (*entity.FitCheck, error)
	ListByOwner(ctx context.Context, owner entity.Owner) ([]*entity.FitCheck, error)
}

type ConversationRepository interface {
	OwnedContentRepository
	Create(ctx context.Context, c *entity.Conversation) error
	Get(ctx context.Context, id string) (*entity.Conversation, error)
	ListByOwner(ctx context.Context, owner entity.Owner) ([]*entity.Conversation, error)
	AppendMessages(ctx context.Context, id string, msgs []entity.Message, at time.Time) error
}
