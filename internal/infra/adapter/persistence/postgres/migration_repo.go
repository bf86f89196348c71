package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/repository"
)

type MigrationRepo struct{ db querier }

func NewMigrationRepo(db *sql.DB) repository.MigrationRepository {
	return &MigrationRepo{db: db}
}

func (repo *MigrationRepo) Record(ctx context.Context, rec *entity.MigrationRecord) error {
	const query = `
INSERT INTO session_migrations (session_id, user_id, fit_checks_moved, conversations_moved, migrated_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.db.ExecContext(ctx, query,
		rec.SessionID, rec.UserID, rec.FitChecksMoved, rec.ConversationsMoved, rec.MigratedAt,
	); err != nil {
		return fmt.Errorf("Record: ExecContext: %w", err)
	}
	return nil
}

func (repo *MigrationRepo) Get(ctx context.Context, sessionID string) (*entity.MigrationRecord, error) {
	const query = `
SELECT session_id, user_id, fit_checks_moved, conversations_moved, migrated_at, rolled_back_at
FROM session_migrations
WHERE session_id = $1`
	var rec entity.MigrationRecord
	err := repo.db.QueryRowContext(ctx, query, sessionID).Scan(
		&rec.SessionID, &rec.UserID, &rec.FitChecksMoved, &rec.ConversationsMoved,
		&rec.MigratedAt, &rec.RolledBackAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	return &rec, nil
}

func (repo *MigrationRepo) MarkRolledBack(ctx context.Context, sessionID string, at time.Time) error {
	const query = `UPDATE session_migrations SET rolled_back_at = $2 WHERE session_id = $1`
	if _, err := repo.db.ExecContext(ctx, query, sessionID, at); err != nil {
		return fmt.Errorf("MarkRolledBack: ExecContext: %w", err)
	}
	return nil
}
