package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"jules-backend/internal/domain/entity"
)

type SessionRepo struct {
	coll       *mongodriver.Collection
	migrations *mongodriver.Collection
}

// Create inserts a session unless the id is taken by a live session or has
// already been consumed by a migration.
func (repo *SessionRepo) Create(ctx context.Context, s *entity.AnonymousSession) error {
	n, err := repo.migrations.CountDocuments(ctx, bson.D{{Key: "_id", Value: s.SessionID}})
	if err != nil {
		return fmt.Errorf("Create: CountDocuments: %w", err)
	}
	if n > 0 {
		return entity.ErrDuplicateSession
	}
	if _, err := repo.coll.InsertOne(ctx, newSessionDoc(s)); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return entity.ErrDuplicateSession
		}
		return fmt.Errorf("Create: InsertOne: %w", err)
	}
	return nil
}

func (repo *SessionRepo) Get(ctx context.Context, sessionID string) (*entity.AnonymousSession, error) {
	var doc sessionDoc
	err := repo.coll.FindOne(ctx, bson.D{{Key: "_id", Value: sessionID}}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: FindOne: %w", err)
	}
	return doc.entity(), nil
}

// GetForUpdate bumps a lock counter on the document. Inside a transaction the
// write makes any concurrent transaction touching the same session conflict
// and abort.
func (repo *SessionRepo) GetForUpdate(ctx context.Context, sessionID string) (*entity.AnonymousSession, error) {
	var doc sessionDoc
	err := repo.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: sessionID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "lock_seq", Value: 1}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetForUpdate: FindOneAndUpdate: %w", err)
	}
	return doc.entity(), nil
}

func (repo *SessionRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := repo.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: sessionID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "last_activity_at", Value: at.UTC()}}}},
	)
	if err != nil {
		return fmt.Errorf("Touch: UpdateOne: %w", err)
	}
	return nil
}

// IncrementUsage uses $inc, which is atomic on a single document.
func (repo *SessionRepo) IncrementUsage(ctx context.Context, sessionID string, feature entity.Feature, at time.Time) (int, error) {
	field, ok := usageField(feature)
	if !ok {
		return 0, fmt.Errorf("%w: %q", entity.ErrUnknownFeature, string(feature))
	}
	var doc sessionDoc
	err := repo.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: sessionID}},
		bson.D{
			{Key: "$inc", Value: bson.D{{Key: field, Value: 1}}},
			{Key: "$set", Value: bson.D{{Key: "last_activity_at", Value: at.UTC()}}},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return 0, entity.ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("IncrementUsage: FindOneAndUpdate: %w", err)
	}
	return doc.entity().Usage.Get(feature), nil
}

func (repo *SessionRepo) ExtendExpiry(ctx context.Context, sessionID string, expiresAt time.Time) (bool, error) {
	res, err := repo.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: sessionID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "expires_at", Value: expiresAt.UTC()}}}},
	)
	if err != nil {
		return false, fmt.Errorf("ExtendExpiry: UpdateOne: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (repo *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	if _, err := repo.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: sessionID}}); err != nil {
		return fmt.Errorf("Delete: DeleteOne: %w", err)
	}
	return nil
}

func expiredBefore(now time.Time) bson.D {
	return bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: now.UTC()}}}}
}

func (repo *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := repo.coll.DeleteMany(ctx, expiredBefore(now))
	if err != nil {
		return 0, fmt.Errorf("DeleteExpired: DeleteMany: %w", err)
	}
	return res.DeletedCount, nil
}

func (repo *SessionRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "expires_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.D{{Key: "_id", Value: 1}})
	cur, err := repo.coll.Find(ctx, expiredBefore(now), opts)
	if err != nil {
		return nil, fmt.Errorf("ListExpired: Find: %w", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ListExpired: All: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (repo *SessionRepo) CountActive(ctx context.Context, now time.Time) (int64, error) {
	return repo.count(ctx, "CountActive", bson.D{{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now.UTC()}}}})
}

func (repo *SessionRepo) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	return repo.count(ctx, "CountExpired", bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: now.UTC()}}}})
}

func (repo *SessionRepo) CountTotal(ctx context.Context) (int64, error) {
	return repo.count(ctx, "CountTotal", bson.D{})
}

func (repo *SessionRepo) count(ctx context.Context, op string, filter bson.D) (int64, error) {
	n, err := repo.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%s: CountDocuments: %w", op, err)
	}
	return n, nil
}
