package storage

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jules-backend/internal/config"
	"jules-backend/internal/domain/entity"
	"jules-backend/internal/repository"
)

func TestOpen_Memory(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := context.Background()

	b, err := Open(ctx, config.StorageConfig{StorageDriver: config.DriverMemory}, logger)
	require.NoError(t, err)
	defer func() { require.NoError(t, b.Close(ctx)) }()

	assert.Equal(t, config.DriverMemory, b.Driver)
	assert.Nil(t, b.DB)
	require.NoError(t, b.Ping(ctx))
	assert.Contains(t, buf.String(), "in-memory session store")

	err = b.Tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Sessions.Create(ctx, entity.NewAnonymousSession("s1", "", "", time.Now()))
	})
	require.NoError(t, err)
	_, err = b.Repos.Sessions.Get(ctx, "s1")
	assert.NoError(t, err, "transactional writes are visible through Repos")
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{StorageDriver: "redis"}, slog.Default())
	assert.ErrorContains(t, err, `unknown storage driver "redis"`)
}

func TestOpen_PostgresWithoutDSN(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{StorageDriver: config.DriverPostgres}, slog.Default())
	assert.Error(t, err)
}
