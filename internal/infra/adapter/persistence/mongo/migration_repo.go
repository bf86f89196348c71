package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"

	"jules-backend/internal/domain/entity"
)

type MigrationRepo struct{ coll *mongodriver.Collection }

func (repo *MigrationRepo) Record(ctx context.Context, rec *entity.MigrationRecord) error {
	doc := migrationDoc{
		SessionID:          rec.SessionID,
		UserID:             rec.UserID,
		FitChecksMoved:     rec.FitChecksMoved,
		ConversationsMoved: rec.ConversationsMoved,
		MigratedAt:         rec.MigratedAt.UTC(),
	}
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("Record: InsertOne: %w", err)
	}
	return nil
}

func (repo *MigrationRepo) Get(ctx context.Context, sessionID string) (*entity.MigrationRecord, error) {
	var doc migrationDoc
	err := repo.coll.FindOne(ctx, bson.D{{Key: "_id", Value: sessionID}}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: FindOne: %w", err)
	}
	return doc.entity(), nil
}

func (repo *MigrationRepo) MarkRolledBack(ctx context.Context, sessionID string, at time.Time) error {
	_, err := repo.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: sessionID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "rolled_back_at", Value: at.UTC()}}}},
	)
	if err != nil {
		return fmt.Errorf("MarkRolledBack: UpdateOne: %w", err)
	}
	return nil
}
