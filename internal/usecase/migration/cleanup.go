package migration

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/observability/tracing"
	"jules-backend/internal/repository"
)

// CleanupExpiredSessions deletes every session whose expiresAt is before now
// together with the fit checks and conversations it still owns, then deletes
// anonymous content left without a session. Each session is its own transaction: a failure is recorded in the result and the sweep
// moves on. Running it again right after a complete sweep deletes nothing.
//
// The returned error is non-nil only when the expired sessions cannot be
// listed or ctx is done; the partial result is returned alongside it.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (res *CleanupResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "migration.cleanup")
	defer func() {
		if res != nil {
			span.SetAttributes(
				attribute.Int("sessions_deleted", res.SessionsDeleted),
				attribute.Int("orphans_deleted", res.OrphansDeleted),
				attribute.Int("sessions_failed", res.SessionsFailed))
		}
		tracing.EndSpan(span, err)
	}()

	batch := s.CleanupBatchSize
	if batch <= 0 {
		batch = DefaultCleanupBatchSize
	}

	res = &CleanupResult{}
	failed := make(map[string]struct{})

	for {
		// Failed ids keep matching the query; widen the page so they cannot
		// crowd out the rest.
		limit := batch + len(failed)
		ids, err := s.Repos.Sessions.ListExpired(ctx, s.now(), limit)
		if err != nil {
			return res, fmt.Errorf("list expired sessions: %w", err)
		}

		progressed := false
		for _, id := range ids {
			if _, seen := failed[id]; seen {
				continue
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}
			progressed = true

			fc, conv, deleted, err := s.cleanupOne(ctx, id)
			if err != nil {
				failed[id] = struct{}{}
				res.SessionsFailed++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", entity.ShortID(id), err))
				s.logger().Warn("expired session cleanup failed",
					slog.String("session", entity.ShortID(id)),
					slog.Any("error", err))
				continue
			}
			if deleted {
				res.SessionsDeleted++
				res.FitChecksDeleted += fc
				res.ConversationsDeleted += conv
			}
		}

		if len(ids) < limit || !progressed {
			break
		}
	}

	if err := s.cleanupOrphans(ctx, batch, res); err != nil {
		return res, err
	}
	return res, nil
}

// cleanupOrphans deletes content whose anonymous owner has no session record,
// such as content written by a request that lost a race with the session's
// deletion. Content handed back by a rollback is kept.
func (s *Service) cleanupOrphans(ctx context.Context, batch int, res *CleanupResult) error {
	visited := make(map[string]struct{})
	for {
		limit := batch + len(visited)
		ids, full, err := s.orphanedOwners(ctx, limit)
		if err != nil {
			return fmt.Errorf("list orphaned content: %w", err)
		}

		progressed := false
		for _, id := range ids {
			if _, seen := visited[id]; seen {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			visited[id] = struct{}{}
			progressed = true

			fc, conv, deleted, err := s.cleanupOrphan(ctx, id)
			if err != nil {
				res.SessionsFailed++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", entity.ShortID(id), err))
				s.logger().Warn("orphaned content cleanup failed",
					slog.String("session", entity.ShortID(id)),
					slog.Any("error", err))
				continue
			}
			if deleted {
				res.OrphansDeleted++
				res.FitChecksDeleted += fc
				res.ConversationsDeleted += conv
			}
		}

		if !full || !progressed {
			return nil
		}
	}
}

// orphanedOwners merges the orphaned owner ids of both content types. full
// reports whether either listing hit the limit.
func (s *Service) orphanedOwners(ctx context.Context, limit int) (ids []string, full bool, err error) {
	fromFitChecks, err := s.Repos.FitChecks.ListOrphanedOwners(ctx, limit)
	if err != nil {
		return nil, false, err
	}
	fromConversations, err := s.Repos.Conversations.ListOrphanedOwners(ctx, limit)
	if err != nil {
		return nil, false, err
	}
	seen := make(map[string]struct{}, len(fromFitChecks)+len(fromConversations))
	for _, id := range append(fromFitChecks, fromConversations...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	full = len(fromFitChecks) >= limit || len(fromConversations) >= limit
	return ids, full, nil
}

// cleanupOrphan re-checks under lock that the owner still has no session and
// no rolled-back migration before deleting its content.
func (s *Service) cleanupOrphan(ctx context.Context, sessionID string) (fitChecks, conversations int, deleted bool, err error) {
	err = s.Tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		sess, err := repos.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		if sess != nil {
			return nil
		}
		rec, err := repos.Migrations.Get(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("read ledger: %w", err)
		}
		if rec != nil && rec.RolledBackAt != nil {
			return nil
		}

		owner := entity.AnonymousOwner(sessionID)
		fc, err := repos.FitChecks.DeleteByOwner(ctx, owner)
		if err != nil {
			return fmt.Errorf("delete fit checks: %w", err)
		}
		conv, err := repos.Conversations.DeleteByOwner(ctx, owner)
		if err != nil {
			return fmt.Errorf("delete conversations: %w", err)
		}
		fitChecks, conversations, deleted = int(fc), int(conv), true
		return nil
	})
	if err != nil {
		return 0, 0, false, err
	}
	return fitChecks, conversations, deleted, nil
}

// cleanupOne deletes one session and its content. The expiry is re-checked
// under lock so a session extended since the listing survives.
func (s *Service) cleanupOne(ctx context.Context, sessionID string) (fitChecks, conversations int, deleted bool, err error) {
	err = s.Tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		sess, err := repos.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		if sess == nil || !sess.ExpiresAt.Before(s.now()) {
			return nil
		}

		owner := entity.AnonymousOwner(sessionID)
		fc, err := repos.FitChecks.DeleteByOwner(ctx, owner)
		if err != nil {
			return fmt.Errorf("delete fit checks: %w", err)
		}
		conv, err := repos.Conversations.DeleteByOwner(ctx, owner)
		if err != nil {
			return fmt.Errorf("delete conversations: %w", err)
		}
		if err := repos.Sessions.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		fitChecks, conversations, deleted = int(fc), int(conv), true
		return nil
	})
	if err != nil {
		return 0, 0, false, err
	}
	return fitChecks, conversations, deleted, nil
}
