package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/infra/mongodb"
)

// ownedCollection implements the ownership operations shared by content
// collections.
type ownedCollection struct {
	coll *mongodriver.Collection
}

func ownerFilter(owner entity.Owner) bson.D {
	return bson.D{
		{Key: "owner_kind", Value: string(owner.Kind)},
		{Key: "owner_id", Value: owner.ID},
	}
}

func (c ownedCollection) name() string { return c.coll.Name() }

func (c ownedCollection) MigrateOwner(ctx context.Context, sessionID, userID string, at time.Time) (int64, error) {
	res, err := c.coll.UpdateMany(ctx,
		ownerFilter(entity.AnonymousOwner(sessionID)),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "owner_kind", Value: string(entity.OwnerKindUser)},
			{Key: "owner_id", Value: userID},
			{Key: "migrated_at", Value: at.UTC()},
			{Key: "migrated_from_session", Value: sessionID},
		}}},
	)
	if err != nil {
		return 0, fmt.Errorf("MigrateOwner %s: UpdateMany: %w", c.name(), err)
	}
	return res.MatchedCount, nil
}

func (c ownedCollection) RestoreOwner(ctx context.Context, userID, sessionID string) (int64, error) {
	filter := append(ownerFilter(entity.UserOwner(userID)),
		bson.E{Key: "migrated_from_session", Value: sessionID},
		bson.E{Key: "migrated_at", Value: bson.D{{Key: "$ne", Value: nil}}},
	)
	res, err := c.coll.UpdateMany(ctx, filter, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "owner_kind", Value: string(entity.OwnerKindAnonymous)},
			{Key: "owner_id", Value: sessionID},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "migrated_at", Value: ""},
			{Key: "migrated_from_session", Value: ""},
		}},
	})
	if err != nil {
		return 0, fmt.Errorf("RestoreOwner %s: UpdateMany: %w", c.name(), err)
	}
	return res.MatchedCount, nil
}

func (c ownedCollection) DeleteByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, ownerFilter(owner))
	if err != nil {
		return 0, fmt.Errorf("DeleteByOwner %s: DeleteMany: %w", c.name(), err)
	}
	return res.DeletedCount, nil
}

func (c ownedCollection) CountByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, ownerFilter(owner))
	if err != nil {
		return 0, fmt.Errorf("CountByOwner %s: CountDocuments: %w", c.name(), err)
	}
	return n, nil
}

func (c ownedCollection) CountTotal(ctx context.Context) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("CountTotal %s: CountDocuments: %w", c.name(), err)
	}
	return n, nil
}

// ListOrphanedOwners groups anonymous content by owner and keeps the owners
// that match no session document and no rolled-back ledger entry.
func (c ownedCollection) ListOrphanedOwners(ctx context.Context, limit int) ([]string, error) {
	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "owner_kind", Value: string(entity.OwnerKindAnonymous)}}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$owner_id"}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: mongodb.CollectionSessions},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "session"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "session", Value: bson.D{{Key: "$size", Value: 0}}}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: mongodb.CollectionMigrations},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "ledger"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "ledger.rolled_back_at", Value: bson.D{{Key: "$exists", Value: false}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("ListOrphanedOwners %s: Aggregate: %w", c.name(), err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ListOrphanedOwners %s: All: %w", c.name(), err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
