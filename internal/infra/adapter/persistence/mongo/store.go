// Package mongo implements the repositories on MongoDB. Multi-document
// writes run in driver sessions, which requires a replica set or sharded
// cluster.
package mongo

import (
	"context"
	"fmt"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"jules-backend/internal/infra/mongodb"
	"jules-backend/internal/repository"
)

// Store owns the collections and implements repository.Transactor.
type Store struct {
	client *mongodriver.Client
	db     *mongodriver.Database
	repos  repository.Repositories
}

func NewStore(client *mongodriver.Client, database string) *Store {
	db := client.Database(database)
	sessions := db.Collection(mongodb.CollectionSessions)
	migrations := db.Collection(mongodb.CollectionMigrations)
	fitChecks := db.Collection(mongodb.CollectionFitChecks)
	conversations := db.Collection(mongodb.CollectionConversations)
	return &Store{
		client: client,
		db:     db,
		repos: repository.Repositories{
			Sessions:      &SessionRepo{coll: sessions, migrations: migrations},
			FitChecks:     &FitCheckRepo{ownedCollection{coll: fitChecks}},
			Conversations: &ConversationRepo{ownedCollection{coll: conversations}},
			Migrations:    &MigrationRepo{coll: migrations},
		},
	}
}

// Repositories returns the repositories. Calls join a transaction when made
// with the context passed to a WithinTx callback.
func (s *Store) Repositories() repository.Repositories { return s.repos }

func (s *Store) Database() *mongodriver.Database { return s.db }

// WithinTx runs fn in a driver-managed transaction. The driver retries fn on
// transient transaction errors, so fn must be safe to re-run.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("WithinTx: StartSession: %w", err)
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, fn(txCtx, s.repos)
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

var (
	_ repository.Transactor             = (*Store)(nil)
	_ repository.SessionRepository      = (*SessionRepo)(nil)
	_ repository.FitCheckRepository     = (*FitCheckRepo)(nil)
	_ repository.ConversationRepository = (*ConversationRepo)(nil)
	_ repository.MigrationRepository    = (*MigrationRepo)(nil)
)
