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

type SessionRepo struct{ db querier }

func NewSessionRepo(db *sql.DB) repository.SessionRepository {
	return &SessionRepo{db: db}
}

const sessionColumns = `session_id, fit_checks, chat_messages, profile_pic_reviews,
       ip_address, user_agent, created_at, last_activity_at, expires_at`

func scanSession(sc interface{ Scan(...any) error }) (*entity.AnonymousSession, error) {
	var s entity.AnonymousSession
	err := sc.Scan(
		&s.SessionID, &s.Usage.FitChecks, &s.Usage.ChatMessages, &s.Usage.ProfilePicReviews,
		&s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.LastActivityAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a session unless the id is taken by a live session or has
// already been consumed by a migration.
func (repo *SessionRepo) Create(ctx context.Context, s *entity.AnonymousSession) error {
	const query = `
INSERT INTO anonymous_sessions (
    session_id, fit_checks, chat_messages, profile_pic_reviews,
    ip_address, user_agent, created_at, last_activity_at, expires_at)
SELECT $1::text, $2::int, $3::int, $4::int, $5::text, $6::text, $7::timestamptz, $8::timestamptz, $9::timestamptz
WHERE NOT EXISTS (SELECT 1 FROM session_migrations WHERE session_id = $1::text)
ON CONFLICT (session_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query,
		s.SessionID, s.Usage.FitChecks, s.Usage.ChatMessages, s.Usage.ProfilePicReviews,
		s.IPAddress, s.UserAgent, s.CreatedAt, s.LastActivityAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Create: RowsAffected: %w", err)
	}
	if n == 0 {
		return entity.ErrDuplicateSession
	}
	return nil
}

func (repo *SessionRepo) Get(ctx context.Context, sessionID string) (*entity.AnonymousSession, error) {
	query := `SELECT ` + sessionColumns + `
FROM anonymous_sessions
WHERE session_id = $1`
	s, err := scanSession(repo.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	return s, nil
}

func (repo *SessionRepo) GetForUpdate(ctx context.Context, sessionID string) (*entity.AnonymousSession, error) {
	query := `SELECT ` + sessionColumns + `
FROM anonymous_sessions
WHERE session_id = $1
FOR UPDATE`
	s, err := scanSession(repo.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetForUpdate: QueryRowContext: %w", err)
	}
	return s, nil
}

func (repo *SessionRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	const query = `UPDATE anonymous_sessions SET last_activity_at = $2 WHERE session_id = $1`
	if _, err := repo.db.ExecContext(ctx, query, sessionID, at); err != nil {
		return fmt.Errorf("Touch: ExecContext: %w", err)
	}
	return nil
}

func usageColumn(f entity.Feature) (string, error) {
	switch f {
	case entity.FeatureFitChecks:
		return "fit_checks", nil
	case entity.FeatureChatMessages:
		return "chat_messages", nil
	case entity.FeatureProfilePicReviews:
		return "profile_pic_reviews", nil
	}
	return "", fmt.Errorf("%w: %q", entity.ErrUnknownFeature, string(f))
}

// IncrementUsage relies on the row lock taken by UPDATE, so concurrent
// increments on one session serialize without lost updates.
func (repo *SessionRepo) IncrementUsage(ctx context.Context, sessionID string, feature entity.Feature, at time.Time) (int, error) {
	col, err := usageColumn(feature)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
UPDATE anonymous_sessions
SET %[1]s = %[1]s + 1, last_activity_at = $2
WHERE session_id = $1
RETURNING %[1]s`, col)

	var n int
	err = repo.db.QueryRowContext(ctx, query, sessionID, at).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, entity.ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("IncrementUsage: QueryRowContext: %w", err)
	}
	return n, nil
}

func (repo *SessionRepo) ExtendExpiry(ctx context.Context, sessionID string, expiresAt time.Time) (bool, error) {
	const query = `UPDATE anonymous_sessions SET expires_at = $2 WHERE session_id = $1`
	res, err := repo.db.ExecContext(ctx, query, sessionID, expiresAt)
	if err != nil {
		return false, fmt.Errorf("ExtendExpiry: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ExtendExpiry: RowsAffected: %w", err)
	}
	return n > 0, nil
}

func (repo *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	const query = `DELETE FROM anonymous_sessions WHERE session_id = $1`
	if _, err := repo.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("Delete: ExecContext: %w", err)
	}
	return nil
}

func (repo *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM anonymous_sessions WHERE expires_at < $1`
	res, err := repo.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("DeleteExpired: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteExpired: RowsAffected: %w", err)
	}
	return n, nil
}

func (repo *SessionRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const query = `
SELECT session_id
FROM anonymous_sessions
WHERE expires_at < $1
ORDER BY expires_at ASC, session_id ASC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("ListExpired: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListExpired: Scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListExpired: rows: %w", err)
	}
	return ids, nil
}

func (repo *SessionRepo) CountActive(ctx context.Context, now time.Time) (int64, error) {
	return repo.count(ctx, "CountActive", `SELECT COUNT(*) FROM anonymous_sessions WHERE expires_at > $1`, now)
}

func (repo *SessionRepo) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	return repo.count(ctx, "CountExpired", `SELECT COUNT(*) FROM anonymous_sessions WHERE expires_at <= $1`, now)
}

func (repo *SessionRepo) CountTotal(ctx context.Context) (int64, error) {
	return repo.count(ctx, "CountTotal", `SELECT COUNT(*) FROM anonymous_sessions`)
}

func (repo *SessionRepo) count(ctx context.Context, op, query string, args ...any) (int64, error) {
	var n int64
	if err := repo.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: QueryRowContext: %w", op, err)
	}
	return n, nil
}
