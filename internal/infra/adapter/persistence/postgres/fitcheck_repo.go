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

const fitChecksTable = "fit_checks"

type FitCheckRepo struct{ db querier }

func NewFitCheckRepo(db *sql.DB) repository.FitCheckRepository {
	return &FitCheckRepo{db: db}
}

func (repo *FitCheckRepo) owned() ownedTable { return ownedTable{db: repo.db, table: fitChecksTable} }

const fitCheckColumns = `id, owner_kind, owner_id, context, rating, feedback,
       created_at, migrated_at, migrated_from_session`

func scanFitCheck(sc interface{ Scan(...any) error }) (*entity.FitCheck, error) {
	var (
		fc   entity.FitCheck
		kind string
		from sql.NullString
	)
	if err := sc.Scan(
		&fc.ID, &kind, &fc.Owner.ID, &fc.Context, &fc.Rating, &fc.Feedback,
		&fc.CreatedAt, &fc.MigratedAt, &from,
	); err != nil {
		return nil, err
	}
	fc.Owner.Kind = entity.OwnerKind(kind)
	fc.MigratedFrom = from.String
	return &fc, nil
}

func (repo *FitCheckRepo) Create(ctx context.Context, fc *entity.FitCheck) error {
	const query = `
INSERT INTO fit_checks (id, owner_kind, owner_id, context, rating, feedback, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := repo.db.ExecContext(ctx, query,
		fc.ID, string(fc.Owner.Kind), fc.Owner.ID, fc.Context, fc.Rating, fc.Feedback, fc.CreatedAt,
	); err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	return nil
}

func (repo *FitCheckRepo) Get(ctx context.Context, id string) (*entity.FitCheck, error) {
	query := `SELECT ` + fitCheckColumns + ` FROM fit_checks WHERE id = $1`
	fc, err := scanFitCheck(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	return fc, nil
}

func (repo *FitCheckRepo) ListByOwner(ctx context.Context, owner entity.Owner) ([]*entity.FitCheck, error) {
	query := `SELECT ` + fitCheckColumns + `
FROM fit_checks
WHERE owner_kind = $1 AND owner_id = $2
ORDER BY created_at ASC`
	rows, err := repo.db.QueryContext(ctx, query, string(owner.Kind), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*entity.FitCheck, 0, 8)
	for rows.Next() {
		fc, err := scanFitCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByOwner: Scan: %w", err)
		}
		out = append(out, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByOwner: rows: %w", err)
	}
	return out, nil
}

func (repo *FitCheckRepo) MigrateOwner(ctx context.Context, sessionID, userID string, at time.Time) (int64, error) {
	return repo.owned().MigrateOwner(ctx, sessionID, userID, at)
}

func (repo *FitCheckRepo) RestoreOwner(ctx context.Context, userID, sessionID string) (int64, error) {
	return repo.owned().RestoreOwner(ctx, userID, sessionID)
}

func (repo *FitCheckRepo) DeleteByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	return repo.owned().DeleteByOwner(ctx, owner)
}

func (repo *FitCheckRepo) CountByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	return repo.owned().CountByOwner(ctx, owner)
}

func (repo *FitCheckRepo) CountTotal(ctx context.Context) (int64, error) {
	return repo.owned().CountTotal(ctx)
}

func (repo *FitCheckRepo) ListOrphanedOwners(ctx context.Context, limit int) ([]string, error) {
	return repo.owned().ListOrphanedOwners(ctx, limit)
}
