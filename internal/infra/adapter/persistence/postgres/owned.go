package postgres

import (
	"context"
	"fmt"
	"time"

	"jules-backend/internal/domain/entity"
)

// ownedTable implements the ownership operations shared by content tables.
// table is always one of the package constants, never caller input.
type ownedTable struct {
	db    querier
	table string
}

func (t ownedTable) MigrateOwner(ctx context.Context, sessionID, userID string, at time.Time) (int64, error) {
	query := fmt.Sprintf(`
UPDATE %s
SET owner_kind = 'user', owner_id = $2, migrated_at = $3, migrated_from_session = $1
WHERE owner_kind = 'anonymous' AND owner_id = $1`, t.table)
	res, err := t.db.ExecContext(ctx, query, sessionID, userID, at)
	if err != nil {
		return 0, fmt.Errorf("MigrateOwner %s: ExecContext: %w", t.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("MigrateOwner %s: RowsAffected: %w", t.table, err)
	}
	return n, nil
}

func (t ownedTable) RestoreOwner(ctx context.Context, userID, sessionID string) (int64, error) {
	query := fmt.Sprintf(`
UPDATE %s
SET owner_kind = 'anonymous', owner_id = $2, migrated_at = NULL, migrated_from_session = NULL
WHERE owner_kind = 'user' AND owner_id = $1
  AND migrated_at IS NOT NULL AND migrated_from_session = $2`, t.table)
	res, err := t.db.ExecContext(ctx, query, userID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("RestoreOwner %s: ExecContext: %w", t.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("RestoreOwner %s: RowsAffected: %w", t.table, err)
	}
	return n, nil
}

func (t ownedTable) DeleteByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE owner_kind = $1 AND owner_id = $2`, t.table)
	res, err := t.db.ExecContext(ctx, query, string(owner.Kind), owner.ID)
	if err != nil {
		return 0, fmt.Errorf("DeleteByOwner %s: ExecContext: %w", t.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteByOwner %s: RowsAffected: %w", t.table, err)
	}
	return n, nil
}

func (t ownedTable) CountByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE owner_kind = $1 AND owner_id = $2`, t.table)
	var n int64
	if err := t.db.QueryRowContext(ctx, query, string(owner.Kind), owner.ID).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountByOwner %s: QueryRowContext: %w", t.table, err)
	}
	return n, nil
}

func (t ownedTable) CountTotal(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.table)
	var n int64
	if err := t.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountTotal %s: QueryRowContext: %w", t.table, err)
	}
	return n, nil
}

func (t ownedTable) ListOrphanedOwners(ctx context.Context, limit int) ([]string, error) {
	query := fmt.Sprintf(`
SELECT DISTINCT c.owner_id
FROM %s c
WHERE c.owner_kind = 'anonymous'
  AND NOT EXISTS (SELECT 1 FROM anonymous_sessions s WHERE s.session_id = c.owner_id)
  AND NOT EXISTS (
    SELECT 1 FROM session_migrations m
    WHERE m.session_id = c.owner_id AND m.rolled_back_at IS NOT NULL)
ORDER BY c.owner_id
LIMIT $1`, t.table)
	rows, err := t.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ListOrphanedOwners %s: QueryContext: %w", t.table, err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListOrphanedOwners %s: Scan: %w", t.table, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListOrphanedOwners %s: rows: %w", t.table, err)
	}
	return ids, nil
}
