// Package migration transfers content created during an anonymous session to
// the account the visitor registers, and sweeps sessions that expired.
//
// Migrate runs inside a single storage transaction: the content re-pointing,
// the ledger entry and the session deletion commit together or not at all.
// Rollback is the explicit compensating operation. CleanupExpiredSessions
// deletes each expired session together with its content as an independent
// unit, so an interrupted sweep is completed by the next one.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/observability/metrics"
	"jules-backend/internal/observability/tracing"
	"jules-backend/internal/repository"
)

// DefaultCleanupBatchSize is the number of expired sessions fetched per query
// during a sweep.
const DefaultCleanupBatchSize = 100

// Service implements preview, migrate, rollback, cleanup and stats.
type Service struct {
	// Tx runs the transactional units.
	Tx repository.Transactor
	// Repos serves reads made outside a transaction.
	Repos repository.Repositories

	Now              func() time.Time
	CleanupBatchSize int
	Logger           *slog.Logger
}

// NewService returns a Service with the wall clock and default batch size.
func NewService(tx repository.Transactor, repos repository.Repositories) *Service {
	return &Service{
		Tx:               tx,
		Repos:            repos,
		Now:              time.Now,
		CleanupBatchSize: DefaultCleanupBatchSize,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Preview returns the session metadata and the content a migration would
// move. Expired sessions are previewed too; only a missing record fails.
func (s *Service) Preview(ctx context.Context, sessionID string) (*PreviewResult, error) {
	if sessionID == "" {
		return nil, entity.ErrSessionNotFound
	}
	sess, err := s.Repos.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("preview: get session: %w", err)
	}
	if sess == nil {
		return nil, entity.ErrSessionNotFound
	}

	owner := entity.AnonymousOwner(sessionID)
	var (
		fitChecks     []*entity.FitCheck
		conversations []*entity.Conversation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fitChecks, err = s.Repos.FitChecks.ListByOwner(gctx, owner)
		return err
	})
	g.Go(func() error {
		var err error
		conversations, err = s.Repos.Conversations.ListByOwner(gctx, owner)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("preview: list content: %w", err)
	}

	res := &PreviewResult{
		SessionID:      sess.SessionID,
		CreatedAt:      sess.CreatedAt,
		LastActivityAt: sess.LastActivityAt,
		ExpiresAt:      sess.ExpiresAt,
		Usage:          sess.Usage,
		FitChecks:      make([]PreviewFitCheck, 0, len(fitChecks)),
		Conversations:  make([]PreviewConversation, 0, len(conversations)),
	}
	for _, fc := range fitChecks {
		res.FitChecks = append(res.FitChecks, PreviewFitCheck{
			ID: fc.ID, Context: fc.Context, Rating: fc.Rating, CreatedAt: fc.CreatedAt,
		})
	}
	for _, c := range conversations {
		res.Conversations = append(res.Conversations, PreviewConversation{
			ID: c.ID, Messages: c.Messages, CreatedAt: c.CreatedAt,
		})
	}
	return res, nil
}

// Migrate re-points every fit check and conversation owned by the session to
// userID, records the ledger entry and deletes the session, atomically.
//
// A session that no longer exists fails with entity.ErrSessionNotFound unless
// the ledger shows it was already migrated to the same user, in which case the
// recorded counts are returned with AlreadyMigrated set. Any storage failure
// is returned as *entity.MigrationError after the transaction rolled back.
func (s *Service) Migrate(ctx context.Context, sessionID, userID string) (res *MigrationResult, err error) {
	if sessionID == "" {
		return nil, entity.ErrSessionNotFound
	}
	if userID == "" {
		return nil, &entity.ValidationError{Field: "userId", Message: "is required"}
	}

	ctx, span := tracing.StartSpan(ctx, "migration.migrate",
		attribute.String("session", entity.ShortID(sessionID)),
		attribute.String("user_id", userID))
	defer func() { tracing.EndSpan(span, err) }()

	start := time.Now()
	at := s.now()
	var fitChecks, conversations int64

	txErr := s.Tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		sess, err := repos.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		if sess == nil {
			return entity.ErrSessionNotFound
		}
		if fitChecks, err = repos.FitChecks.MigrateOwner(ctx, sessionID, userID, at); err != nil {
			return fmt.Errorf("migrate fit checks: %w", err)
		}
		if conversations, err = repos.Conversations.MigrateOwner(ctx, sessionID, userID, at); err != nil {
			return fmt.Errorf("migrate conversations: %w", err)
		}
		rec := &entity.MigrationRecord{
			SessionID:          sessionID,
			UserID:             userID,
			FitChecksMoved:     int(fitChecks),
			ConversationsMoved: int(conversations),
			MigratedAt:         at,
		}
		if err := repos.Migrations.Record(ctx, rec); err != nil {
			return fmt.Errorf("record migration: %w", err)
		}
		if err := repos.Sessions.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
	metrics.RecordMigrationDuration(time.Since(start))

	if errors.Is(txErr, entity.ErrSessionNotFound) {
		return s.replayLedger(ctx, sessionID, userID)
	}
	if txErr != nil {
		metrics.RecordMigration("failure", 0, 0)
		s.logger().Error("migration failed",
			slog.String("session", entity.ShortID(sessionID)),
			slog.String("user_id", userID),
			slog.Any("error", txErr))
		return nil, &entity.MigrationError{
			Op:        "migrate",
			SessionID: sessionID,
			Errors:    []string{txErr.Error()},
			Err:       txErr,
		}
	}

	metrics.RecordMigration("success", int(fitChecks), int(conversations))
	s.logger().Info("anonymous session migrated",
		slog.String("session", entity.ShortID(sessionID)),
		slog.String("user_id", userID),
		slog.Int64("fit_checks", fitChecks),
		slog.Int64("conversations", conversations))

	return &MigrationResult{
		SessionID:          sessionID,
		UserID:             userID,
		FitChecksMoved:     int(fitChecks),
		ConversationsMoved: int(conversations),
		MigratedAt:         at,
		Errors:             []string{},
	}, nil
}

// replayLedger answers a migrate call whose session is gone.
func (s *Service) replayLedger(ctx context.Context, sessionID, userID string) (*MigrationResult, error) {
	rec, err := s.Repos.Migrations.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("migrate: read ledger: %w", err)
	}
	if rec == nil || rec.UserID != userID || rec.RolledBackAt != nil {
		metrics.RecordMigration("not_found", 0, 0)
		return nil, entity.ErrSessionNotFound
	}
	metrics.RecordMigration("already_migrated", 0, 0)
	return &MigrationResult{
		SessionID:          sessionID,
		UserID:             userID,
		FitChecksMoved:     rec.FitChecksMoved,
		ConversationsMoved: rec.ConversationsMoved,
		MigratedAt:         rec.MigratedAt,
		AlreadyMigrated:    true,
		Errors:             []string{},
	}, nil
}

// Rollback hands content that Migrate moved from sessionID to userID back to
// the anonymous session and clears its migration marker. The session record
// itself is not recreated.
func (s *Service) Rollback(ctx context.Context, userID, sessionID string) (res *RollbackResult, err error) {
	if userID == "" {
		return nil, &entity.ValidationError{Field: "userId", Message: "is required"}
	}
	if sessionID == "" {
		return nil, &entity.ValidationError{Field: "sessionId", Message: "is required"}
	}

	ctx, span := tracing.StartSpan(ctx, "migration.rollback",
		attribute.String("session", entity.ShortID(sessionID)),
		attribute.String("user_id", userID))
	defer func() { tracing.EndSpan(span, err) }()

	var fitChecks, conversations int64
	txErr := s.Tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		if fitChecks, err = repos.FitChecks.RestoreOwner(ctx, userID, sessionID); err != nil {
			return fmt.Errorf("restore fit checks: %w", err)
		}
		if conversations, err = repos.Conversations.RestoreOwner(ctx, userID, sessionID); err != nil {
			return fmt.Errorf("restore conversations: %w", err)
		}
		if err := repos.Migrations.MarkRolledBack(ctx, sessionID, s.now()); err != nil {
			return fmt.Errorf("mark ledger: %w", err)
		}
		return nil
	})
	if txErr != nil {
		s.logger().Error("migration rollback failed",
			slog.String("session", entity.ShortID(sessionID)),
			slog.String("user_id", userID),
			slog.Any("error", txErr))
		return nil, &entity.MigrationError{
			Op:        "rollback",
			SessionID: sessionID,
			Errors:    []string{txErr.Error()},
			Err:       txErr,
		}
	}

	metrics.RecordMigration("rolled_back", 0, 0)
	s.logger().Warn("migration rolled back",
		slog.String("session", entity.ShortID(sessionID)),
		slog.String("user_id", userID),
		slog.Int64("fit_checks", fitChecks),
		slog.Int64("conversations", conversations))

	return &RollbackResult{
		SessionID:          sessionID,
		UserID:             userID,
		FitChecksMoved:     int(fitChecks),
		ConversationsMoved: int(conversations),
	}, nil
}

// Stats returns current session and content counts.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	var st Stats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.ActiveAnonymousSessions, err = s.Repos.Sessions.CountActive(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		st.ExpiredSessions, err = s.Repos.Sessions.CountExpired(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		st.TotalFitChecks, err = s.Repos.FitChecks.CountTotal(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.TotalConversations, err = s.Repos.Conversations.CountTotal(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("migration stats: %w", err)
	}

	metrics.UpdateSessionsActive(st.ActiveAnonymousSessions)
	return &st, nil
}
