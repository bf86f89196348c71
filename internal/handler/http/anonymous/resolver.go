// Package anonymous attaches anonymous sessions to requests and enforces the
// free-tier usage limits on feature routes.
//
// The resolver never fails a request. Lookup, creation and throttling
// problems leave the request without a session; routes that need one reject
// it through RequireSession or Gate with a SessionRequired error.
package anonymous

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/handler/http/auth"
	"jules-backend/internal/handler/http/respond"
	"jules-backend/internal/observability/metrics"
	"jules-backend/internal/resilience/circuitbreaker"
	"jules-backend/internal/usecase/session"
)

const (
	// HeaderSessionID carries the session id in both directions.
	HeaderSessionID = "X-Anonymous-Session-ID"

	// FieldSessionID is the JSON body field and query parameter name.
	FieldSessionID = "sessionId"

	maxCandidateLen = 128
	maxBodyPeek     = 64 << 10
)

// ErrThrottled is returned when the per-client creation throttle denies a
// new session.
var ErrThrottled = errors.New("session creation throttled")

// SessionStore is the part of the session service the resolver needs.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*entity.AnonymousSession, error)
	Create(ctx context.Context, in session.CreateInput) (*entity.AnonymousSession, error)
}

type ctxKey string

const ctxSession ctxKey = "anonymous_session"

// WithSession attaches sess to ctx.
func WithSession(ctx context.Context, sess *entity.AnonymousSession) context.Context {
	return context.WithValue(ctx, ctxSession, sess)
}

// FromContext returns the session resolved for this request, if any.
func FromContext(ctx context.Context) (*entity.AnonymousSession, bool) {
	sess, ok := ctx.Value(ctxSession).(*entity.AnonymousSession)
	return sess, ok && sess != nil
}

// SessionID returns the resolved session id or "".
func SessionID(ctx context.Context) string {
	if sess, ok := FromContext(ctx); ok {
		return sess.SessionID
	}
	return ""
}

// Resolver finds or creates the anonymous session for a request.
type Resolver struct {
	store    SessionStore
	breaker  *circuitbreaker.CircuitBreaker
	throttle *Throttle
	ips      IPExtractor
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBreaker routes store calls through cb. An open breaker counts as a
// resolution failure.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(r *Resolver) { r.breaker = cb }
}

// WithThrottle limits session creation per client IP.
func WithThrottle(t *Throttle) Option {
	return func(r *Resolver) { r.throttle = t }
}

func WithIPExtractor(e IPExtractor) Option {
	return func(r *Resolver) { r.ips = e }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver returns a resolver over store.
func NewResolver(store SessionStore, opts ...Option) *Resolver {
	r := &Resolver{
		store:  store,
		ips:    RemoteAddrExtractor{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Middleware adopts a valid session named by the request or creates a new
// one, then echoes its id in HeaderSessionID.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return r.handler(next, true)
}

// Optional adopts a valid session named by the request but never creates one.
func (r *Resolver) Optional(next http.Handler) http.Handler {
	return r.handler(next, false)
}

func (r *Resolver) handler(next http.Handler, create bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if _, ok := auth.FromContext(req.Context()); ok {
			metrics.RecordSessionResolution(metrics.ResolutionSkipped)
			next.ServeHTTP(w, req)
			return
		}

		sess, err := r.resolve(req, create)
		if err != nil {
			outcome := metrics.ResolutionFailed
			if errors.Is(err, ErrThrottled) {
				outcome = metrics.ResolutionThrottled
			}
			metrics.RecordSessionResolution(outcome)
			r.logger.Warn("anonymous session resolution failed",
				slog.String("path", req.URL.Path),
				slog.String("outcome", outcome),
				slog.String("error", respond.SanitizeError(err)))
			next.ServeHTTP(w, req)
			return
		}
		if sess == nil {
			next.ServeHTTP(w, req)
			return
		}

		w.Header().Set(HeaderSessionID, sess.SessionID)
		next.ServeHTTP(w, req.WithContext(WithSession(req.Context(), sess)))
	})
}

func (r *Resolver) resolve(req *http.Request, create bool) (*entity.AnonymousSession, error) {
	ctx := req.Context()

	if candidate := CandidateID(req); candidate != "" {
		sess, err := r.lookup(ctx, candidate)
		switch {
		case err == nil && !sess.IsExpired(r.now()):
			metrics.RecordSessionResolution(metrics.ResolutionAdopted)
			return sess, nil
		case err == nil:
			metrics.RecordSessionResolution(metrics.ResolutionExpired)
			r.logger.Warn("anonymous session candidate discarded",
				slog.String("reason", metrics.ResolutionExpired),
				slog.String("session", entity.ShortID(candidate)))
		case errors.Is(err, entity.ErrSessionNotFound):
			metrics.RecordSessionResolution(metrics.ResolutionNotFound)
			r.logger.Warn("anonymous session candidate discarded",
				slog.String("reason", metrics.ResolutionNotFound),
				slog.String("session", entity.ShortID(candidate)))
		default:
			return nil, err
		}
	}

	if !create {
		return nil, nil
	}

	ip, _ := r.ips.ExtractIP(req)
	if r.throttle != nil && !r.throttle.Allow(ip) {
		return nil, ErrThrottled
	}

	sess, err := circuitbreaker.Do(r.breaker, func() (*entity.AnonymousSession, error) {
		return r.store.Create(ctx, session.CreateInput{IPAddress: ip, UserAgent: req.UserAgent()})
	})
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("session store returned no session")
	}
	metrics.RecordSessionResolution(metrics.ResolutionCreated)
	return sess, nil
}

// lookup reports a miss as entity.ErrSessionNotFound without counting it
// against the breaker.
func (r *Resolver) lookup(ctx context.Context, id string) (*entity.AnonymousSession, error) {
	sess, err := circuitbreaker.Do(r.breaker, func() (*entity.AnonymousSession, error) {
		sess, err := r.store.Get(ctx, id)
		if errors.Is(err, entity.ErrSessionNotFound) {
			return nil, nil
		}
		return sess, err
	})
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, entity.ErrSessionNotFound
	}
	return sess, nil
}

// CandidateID returns the session id named by the request, looking in the
// header, then the JSON body, then the query string. The id is not verified.
func CandidateID(req *http.Request) string {
	if id := req.Header.Get(HeaderSessionID); id != "" {
		return validCandidate(id)
	}
	if id := bodySessionID(req); id != "" {
		return validCandidate(id)
	}
	return validCandidate(req.URL.Query().Get(FieldSessionID))
}

func validCandidate(id string) string {
	if len(id) > maxCandidateLen {
		return ""
	}
	return id
}

type peekedBody struct {
	io.Reader
	io.Closer
}

// bodySessionID reads the sessionId field of a JSON body and restores the
// body for the next handler.
func bodySessionID(req *http.Request) string {
	if req.Body == nil || req.Body == http.NoBody {
		return ""
	}
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(req.Body, maxBodyPeek))
	req.Body = peekedBody{Reader: io.MultiReader(bytes.NewReader(data), req.Body), Closer: req.Body}
	if err != nil || len(data) >= maxBodyPeek {
		return ""
	}

	var probe struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.SessionID
}

// RequireSession rejects requests that reach it without a valid anonymous
// session. Authenticated callers pass.
func RequireSession(now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if _, ok := auth.FromContext(req.Context()); ok {
				next.ServeHTTP(w, req)
				return
			}
			sess, ok := FromContext(req.Context())
			if !ok {
				respond.SessionRequired(w, respond.MsgSessionRequired)
				return
			}
			if sess.IsExpired(now()) {
				respond.SessionRequired(w, respond.MsgSessionExpired)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
