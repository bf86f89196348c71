// Package storage opens the session store backend selected by
// STORAGE_DRIVER for the api and worker binaries.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"

	"jules-backend/internal/config"
	mongoRepo "jules-backend/internal/infra/adapter/persistence/mongo"
	"jules-backend/internal/infra/adapter/persistence/memory"
	pgRepo "jules-backend/internal/infra/adapter/persistence/postgres"
	"jules-backend/internal/infra/db"
	"jules-backend/internal/infra/mongodb"
	"jules-backend/internal/repository"
)

// Backend is an opened store.
type Backend struct {
	Driver string
	Repos  repository.Repositories
	Tx     repository.Transactor
	// DB is set for postgres only.
	DB    *sql.DB
	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// Open connects to the configured backend. Postgres schemas are migrated and
// Mongo indexes are ensured before Open returns.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Backend, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg.DatabaseURL)
	case config.DriverMongo:
		return openMongo(ctx, logger)
	case config.DriverMemory:
		logger.Warn("using in-memory session store, data is lost on restart")
		store := memory.NewStore()
		return &Backend{
			Driver: config.DriverMemory,
			Repos:  store.Repositories(),
			Tx:     store,
			Ping:   store.Ping,
			Close:  func(context.Context) error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func openPostgres(ctx context.Context, dsn string) (*Backend, error) {
	database, err := db.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(ctx, database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Backend{
		Driver: config.DriverPostgres,
		Repos:  pgRepo.NewRepositories(database),
		Tx:     pgRepo.NewTxManager(database),
		DB:     database,
		Ping:   database.PingContext,
		Close:  func(context.Context) error { return database.Close() },
	}, nil
}

func openMongo(ctx context.Context, logger *slog.Logger) (*Backend, error) {
	mcfg, err := mongodb.LoadConfig()
	if err != nil {
		return nil, err
	}
	client, err := mongodb.Connect(ctx, mcfg, logger)
	if err != nil {
		return nil, err
	}
	store := mongoRepo.NewStore(client, mcfg.Database)
	if err := mongodb.EnsureIndexes(ctx, store.Database(), mcfg.SessionTTLGrace); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return &Backend{
		Driver: config.DriverMongo,
		Repos:  store.Repositories(),
		Tx:     store,
		Ping:   mongodb.Healthcheck(client),
		Close:  disconnect(client),
	}, nil
}

func disconnect(client *mongodriver.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error { return client.Disconnect(ctx) }
}
