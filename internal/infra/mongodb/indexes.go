package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// IndexModels returns the index set per collection. The session TTL index
// fires ttlGrace after expires_at.
func IndexModels(ttlGrace time.Duration) map[string][]mongo.IndexModel {
	owned := func(prefix string) []mongo.IndexModel {
		return []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "owner_kind", Value: 1}, {Key: "owner_id", Value: 1}},
				Options: options.Index().SetName(prefix + "_owner_idx"),
			},
			{
				Keys:    bson.D{{Key: "migrated_from_session", Value: 1}},
				Options: options.Index().SetName(prefix + "_migrated_from_idx").SetSparse(true),
			},
		}
	}
	return map[string][]mongo.IndexModel{
		CollectionSessions: {{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("expires_at_ttl").
				SetExpireAfterSeconds(int32(ttlGrace / time.Second)),
		}},
		CollectionFitChecks:     owned("fit_checks"),
		CollectionConversations: owned("conversations"),
		CollectionMigrations: {{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("session_migrations_user_idx"),
		}},
	}
}

// EnsureIndexes creates any missing indexes. It is idempotent as long as
// existing index options are unchanged.
func EnsureIndexes(ctx context.Context, db *mongo.Database, ttlGrace time.Duration) error {
	for coll, models := range IndexModels(ttlGrace) {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", coll, err)
		}
	}
	return nil
}
