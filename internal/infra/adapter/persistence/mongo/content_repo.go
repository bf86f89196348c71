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

var byCreatedAt = options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

type FitCheckRepo struct{ ownedCollection }

func (repo *FitCheckRepo) Create(ctx context.Context, fc *entity.FitCheck) error {
	if _, err := repo.coll.InsertOne(ctx, newFitCheckDoc(fc)); err != nil {
		return fmt.Errorf("Create: InsertOne: %w", err)
	}
	return nil
}

func (repo *FitCheckRepo) Get(ctx context.Context, id string) (*entity.FitCheck, error) {
	var doc fitCheckDoc
	err := repo.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: FindOne: %w", err)
	}
	return doc.entity(), nil
}

func (repo *FitCheckRepo) ListByOwner(ctx context.Context, owner entity.Owner) ([]*entity.FitCheck, error) {
	cur, err := repo.coll.Find(ctx, ownerFilter(owner), byCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: Find: %w", err)
	}
	var docs []fitCheckDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ListByOwner: All: %w", err)
	}
	out := make([]*entity.FitCheck, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.entity())
	}
	return out, nil
}

type ConversationRepo struct{ ownedCollection }

func (repo *ConversationRepo) Create(ctx context.Context, c *entity.Conversation) error {
	if _, err := repo.coll.InsertOne(ctx, newConversationDoc(c)); err != nil {
		return fmt.Errorf("Create: InsertOne: %w", err)
	}
	return nil
}

func (repo *ConversationRepo) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	var doc conversationDoc
	err := repo.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: FindOne: %w", err)
	}
	return doc.entity(), nil
}

func (repo *ConversationRepo) ListByOwner(ctx context.Context, owner entity.Owner) ([]*entity.Conversation, error) {
	cur, err := repo.coll.Find(ctx, ownerFilter(owner), byCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: Find: %w", err)
	}
	var docs []conversationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ListByOwner: All: %w", err)
	}
	out := make([]*entity.Conversation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.entity())
	}
	return out, nil
}

func (repo *ConversationRepo) AppendMessages(ctx context.Context, id string, msgs []entity.Message, at time.Time) error {
	res, err := repo.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{
			{Key: "$push", Value: bson.D{{Key: "messages", Value: bson.D{{Key: "$each", Value: msgs}}}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: at.UTC()}}},
		},
	)
	if err != nil {
		return fmt.Errorf("AppendMessages: UpdateOne: %w", err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}
