package anonymous

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/handler/http/auth"
	"jules-backend/internal/handler/http/respond"
	"jules-backend/internal/handler/http/responsewriter"
	"jules-backend/internal/observability/metrics"
	"jules-backend/pkg/usagelimit"
)

// HeaderUsage carries the JSON usage breakdown on gated responses.
const HeaderUsage = "X-Anonymous-Usage"

// UsageStore reads a session and increments its feature counters.
type UsageStore interface {
	Get(ctx context.Context, sessionID string) (*entity.AnonymousSession, error)
	IncrementUsage(ctx context.Context, sessionID string, feature entity.Feature) (int, error)
}

// Gate enforces the usage policy on feature routes. It checks quota before
// the handler runs and counts the use only when the handler answers 2xx.
//
// A request that passes the check holds a claim on its features until it is
// counted, so parallel requests on one session cannot both take the last use.
// Claims are per process.
type Gate struct {
	policy   usagelimit.Policy
	usage    UsageStore
	now      func() time.Time
	logger   *slog.Logger
	inflight inflight
}

// NewGate returns a gate enforcing policy.
func NewGate(policy usagelimit.Policy, usage UsageStore, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{policy: policy, usage: usage, now: time.Now, logger: logger}
}

// Policy returns the policy the gate enforces.
func (g *Gate) Policy() usagelimit.Policy { return g.policy }

// Limit guards a route that consumes the given features. Authenticated
// callers are not limited.
func (g *Gate) Limit(features ...entity.Feature) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.FromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			sess, ok := FromContext(r.Context())
			if !ok {
				respond.SessionRequired(w, respond.MsgSessionRequired)
				return
			}
			if sess.IsExpired(g.now()) {
				respond.SessionRequired(w, respond.MsgSessionExpired)
				return
			}

			c := g.inflight.acquire(sess.SessionID)
			defer g.inflight.release(sess.SessionID, c)

			c.mu.Lock()
			current := g.currentUsage(r.Context(), sess)
			decision := g.policy.Check(current.Plus(c.pending), features...)
			if !decision.Allowed {
				c.mu.Unlock()
				metrics.RecordUsageDenied(string(decision.Denial.Feature))
				g.logger.Info("usage limit reached",
					slog.String("session", entity.ShortID(sess.SessionID)),
					slog.String("feature", string(decision.Denial.Feature)),
					slog.Int("current", decision.Denial.Current),
					slog.Int("limit", decision.Denial.Limit))
				respond.UsageLimitReached(w, decision.Denial)
				return
			}
			c.take(features)
			c.mu.Unlock()

			// settle counts the use (on success) and gives the claim back in one
			// step under the session lock. It runs once.
			settled := false
			settle := func(success bool) entity.UsageCounts {
				c.mu.Lock()
				defer c.mu.Unlock()
				if settled {
					return current
				}
				settled = true
				usage := current
				if success {
					usage = g.record(context.WithoutCancel(r.Context()), sess.SessionID, current, features)
				}
				c.give(features)
				return usage
			}
			defer settle(false)

			// Increments must survive a client disconnect, but not a request
			// deadline: past it the caller has already been sent a 504.
			rw := responsewriter.WrapWithHook(w, func(status int) {
				success := status >= 200 && status < 300 && !errors.Is(r.Context().Err(), context.DeadlineExceeded)
				usage := settle(success)
				w.Header().Set(HeaderUsage, g.policy.Check(usage, features...).HeaderValue())
			})
			next.ServeHTTP(rw, r)
			if !rw.HeaderWritten() {
				rw.WriteHeader(http.StatusOK)
			}
		})
	}
}

// currentUsage re-reads the stored counts, since the session attached by the
// resolver may predate requests that finished since. A failed read falls back
// to the attached snapshot.
func (g *Gate) currentUsage(ctx context.Context, sess *entity.AnonymousSession) entity.UsageCounts {
	fresh, err := g.usage.Get(ctx, sess.SessionID)
	if err != nil {
		if !errors.Is(err, entity.ErrSessionNotFound) {
			g.logger.Warn("failed to reload session usage",
				slog.String("session", entity.ShortID(sess.SessionID)),
				slog.String("error", respond.SanitizeError(err)))
		}
		return sess.Usage
	}
	if fresh == nil {
		return sess.Usage
	}
	return fresh.Usage
}

// record increments every feature and returns the counts to report, taken
// from the store's answers. A failed increment is logged and reported with
// the count read before the request.
func (g *Gate) record(ctx context.Context, sessionID string, base entity.UsageCounts, features []entity.Feature) entity.UsageCounts {
	usage := base
	for _, f := range features {
		n, err := g.usage.IncrementUsage(ctx, sessionID, f)
		if err != nil {
			g.logger.Error("failed to record feature usage",
				slog.String("session", entity.ShortID(sessionID)),
				slog.String("feature", string(f)),
				slog.String("error", respond.SanitizeError(err)))
			continue
		}
		usage.Set(f, n)
	}
	return usage
}
