package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS anonymous_sessions (
    session_id          TEXT PRIMARY KEY,
    fit_checks          INTEGER NOT NULL DEFAULT 0 CHECK (fit_checks >= 0),
    chat_messages       INTEGER NOT NULL DEFAULT 0 CHECK (chat_messages >= 0),
    profile_pic_reviews INTEGER NOT NULL DEFAULT 0 CHECK (profile_pic_reviews >= 0),
    ip_address          TEXT NOT NULL DEFAULT '',
    user_agent          TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL,
    last_activity_at    TIMESTAMPTZ NOT NULL,
    expires_at          TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS fit_checks (
    id                    TEXT PRIMARY KEY,
    owner_kind            TEXT NOT NULL CHECK (owner_kind IN ('user', 'anonymous')),
    owner_id              TEXT NOT NULL,
    context               TEXT NOT NULL DEFAULT '',
    rating                INTEGER NOT NULL DEFAULT 0,
    feedback              TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    migrated_at           TIMESTAMPTZ,
    migrated_from_session TEXT
)`,
	`CREATE TABLE IF NOT EXISTS conversations (
    id                    TEXT PRIMARY KEY,
    owner_kind            TEXT NOT NULL CHECK (owner_kind IN ('user', 'anonymous')),
    owner_id              TEXT NOT NULL,
    messages              JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    migrated_at           TIMESTAMPTZ,
    migrated_from_session TEXT
)`,
	`CREATE TABLE IF NOT EXISTS session_migrations (
    session_id          TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL,
    fit_checks_moved    INTEGER NOT NULL,
    conversations_moved INTEGER NOT NULL,
    migrated_at         TIMESTAMPTZ NOT NULL,
    rolled_back_at      TIMESTAMPTZ
)`,
	// リーパーの期限切れ検索用
	`CREATE INDEX IF NOT EXISTS idx_anonymous_sessions_expires_at ON anonymous_sessions(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_fit_checks_owner ON fit_checks(owner_kind, owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_owner ON conversations(owner_kind, owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fit_checks_migrated_from ON fit_checks(migrated_from_session) WHERE migrated_from_session IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_migrated_from ON conversations(migrated_from_session) WHERE migrated_from_session IS NOT NULL`,
}

// MigrateUp creates the tables and indexes used by the service.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

// MigrateDown drops everything MigrateUp created.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"session_migrations", "conversations", "fit_checks", "anonymous_sessions"} {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}
