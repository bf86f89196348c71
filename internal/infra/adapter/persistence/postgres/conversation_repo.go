package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/repository"
)

const conversationsTable = "conversations"

type ConversationRepo struct{ db querier }

func NewConversationRepo(db *sql.DB) repository.ConversationRepository {
	return &ConversationRepo{db: db}
}

func (repo *ConversationRepo) owned() ownedTable {
	return ownedTable{db: repo.db, table: conversationsTable}
}

const conversationColumns = `id, owner_kind, owner_id, messages, created_at, updated_at,
       migrated_at, migrated_from_session`

func scanConversation(sc interface{ Scan(...any) error }) (*entity.Conversation, error) {
	var (
		c    entity.Conversation
		kind string
		raw  []byte
		from sql.NullString
	)
	if err := sc.Scan(
		&c.ID, &kind, &c.Owner.ID, &raw, &c.CreatedAt, &c.UpdatedAt, &c.MigratedAt, &from,
	); err != nil {
		return nil, err
	}
	c.Owner.Kind = entity.OwnerKind(kind)
	c.MigratedFrom = from.String
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.Messages); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
	}
	return &c, nil
}

func (repo *ConversationRepo) Create(ctx context.Context, c *entity.Conversation) error {
	msgs := c.Messages
	if msgs == nil {
		msgs = []entity.Message{}
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("Create: encode messages: %w", err)
	}
	const query = `
INSERT INTO conversations (id, owner_kind, owner_id, messages, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := repo.db.ExecContext(ctx, query,
		c.ID, string(c.Owner.Kind), c.Owner.ID, raw, c.CreatedAt, c.UpdatedAt,
	); err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	return nil
}

func (repo *ConversationRepo) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	c, err := scanConversation(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	return c, nil
}

func (repo *ConversationRepo) ListByOwner(ctx context.Context, owner entity.Owner) ([]*entity.Conversation, error) {
	query := `SELECT ` + conversationColumns + `
FROM conversations
WHERE owner_kind = $1 AND owner_id = $2
ORDER BY created_at ASC`
	rows, err := repo.db.QueryContext(ctx, query, string(owner.Kind), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*entity.Conversation, 0, 8)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByOwner: Scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByOwner: rows: %w", err)
	}
	return out, nil
}

// AppendMessages concatenates onto the JSONB array in a single statement.
func (repo *ConversationRepo) AppendMessages(ctx context.Context, id string, msgs []entity.Message, at time.Time) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("AppendMessages: encode messages: %w", err)
	}
	const query = `
UPDATE conversations
SET messages = messages || $2::jsonb, updated_at = $3
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id, raw, at)
	if err != nil {
		return fmt.Errorf("AppendMessages: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("AppendMessages: RowsAffected: %w", err)
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *ConversationRepo) MigrateOwner(ctx context.Context, sessionID, userID string, at time.Time) (int64, error) {
	return repo.owned().MigrateOwner(ctx, sessionID, userID, at)
}

func (repo *ConversationRepo) RestoreOwner(ctx context.Context, userID, sessionID string) (int64, error) {
	return repo.owned().RestoreOwner(ctx, userID, sessionID)
}

func (repo *ConversationRepo) DeleteByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	return repo.owned().DeleteByOwner(ctx, owner)
}

func (repo *ConversationRepo) CountByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	return repo.owned().CountByOwner(ctx, owner)
}

func (repo *ConversationRepo) CountTotal(ctx context.Context) (int64, error) {
	return repo.owned().CountTotal(ctx)
}

func (repo *ConversationRepo) ListOrphanedOwners(ctx context.Context, limit int) ([]string, error) {
	return repo.owned().ListOrphanedOwners(ctx, limit)
}
