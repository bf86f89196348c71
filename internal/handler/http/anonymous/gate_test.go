package anonymous

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/handler/http/auth"
	"jules-backend/internal/handler/http/respond"
	"jules-backend/internal/usecase/session"
	"jules-backend/pkg/usagelimit"
)

func gateFixture(t *testing.T) (*Gate, *session.Service, *entity.AnonymousSession) {
	t.Helper()
	svc, now := newSessions(t)
	sess, err := svc.Create(context.Background(), session.CreateInput{})
	require.NoError(t, err)
	g := NewGate(usagelimit.DefaultPolicy(), svc, nil)
	g.now = func() time.Time { return *now }
	return g, svc, sess
}

func gatedRequest(t *testing.T, sess *entity.AnonymousSession) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/fit-checks", nil)
	if sess != nil {
		req = req.WithContext(WithSession(req.Context(), sess))
	}
	return req
}

func status(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, code, map[string]string{"ok": "yes"})
	})
}

func TestGate_IncrementsAfterSuccess(t *testing.T) {
	g, svc, sess := gateFixture(t)

	rec := httptest.NewRecorder()
	g.Limit(entity.FeatureChatMessages)(status(http.StatusCreated)).ServeHTTP(rec, gatedRequest(t, sess))

	require.Equal(t, http.StatusCreated, rec.Code)
	stored, err := svc.Get(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Usage.ChatMessages)

	var usage map[string]usagelimit.FeatureUsage
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get(HeaderUsage)), &usage))
	assert.Equal(t, usagelimit.FeatureUsage{Current: 1, Limit: 5, Remaining: 4}, usage["chatMessages"])
}

func TestGate_FailureDoesNotConsumeQuota(t *testing.T) {
	g, svc, sess := gateFixture(t)

	rec := httptest.NewRecorder()
	g.Limit(entity.FeatureFitChecks)(status(http.StatusServiceUnavailable)).ServeHTTP(rec, gatedRequest(t, sess))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	stored, err := svc.Get(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Zero(t, stored.Usage.FitChecks)
	assert.Contains(t, rec.Header().Get(HeaderUsage), `"remaining":1`)
}

func TestGate_ImplicitOKStillCounts(t *testing.T) {
	g, svc, sess := gateFixture(t)
	silent := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	g.Limit(entity.FeatureProfilePicReviews)(silent).ServeHTTP(httptest.NewRecorder(), gatedRequest(t, sess))

	stored, err := svc.Get(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Usage.ProfilePicReviews)
}

func TestGate_PastDeadlineDoesNotConsumeQuota(t *testing.T) {
	g, svc, sess := gateFixture(t)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	req := gatedRequest(t, sess)
	req = req.WithContext(WithSession(ctx, sess))

	g.Limit(entity.FeatureFitChecks)(status(http.StatusCreated)).ServeHTTP(httptest.NewRecorder(), req)

	stored, err := svc.Get(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Zero(t, stored.Usage.FitChecks)
}

func TestGate_DeniesAtLimit(t *testing.T) {
	g, svc, sess := gateFixture(t)
	_, err := svc.IncrementUsage(context.Background(), sess.SessionID, entity.FeatureFitChecks)
	require.NoError(t, err)
	sess, err = svc.Get(context.Background(), sess.SessionID)
	require.NoError(t, err)

	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
	rec := httptest.NewRecorder()
	g.Limit(entity.FeatureFitChecks)(next).ServeHTTP(rec, gatedRequest(t, sess))

	assert.False(t, called)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body respond.UsageLimitBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, respond.UsageLimitBody{
		ErrorKind:       "UsageLimitReached",
		LimitType:       "fitChecks",
		CurrentUsage:    1,
		Limit:           1,
		RemainingUsage:  0,
		UpgradeRequired: true,
		Message:         usagelimit.UpgradeMessage(entity.FeatureFitChecks),
	}, body)

	stored, err := svc.Get(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Usage.FitChecks)
}

func TestGate_RequiresSession(t *testing.T) {
	g, _, _ := gateFixture(t)

	rec := httptest.NewRecorder()
	g.Limit(entity.FeatureFitChecks)(status(http.StatusOK)).ServeHTTP(rec, gatedRequest(t, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"errorKind":"SessionRequired","message":"`+respond.MsgSessionRequired+`"}`, rec.Body.String())
}

func TestGate_ExpiredSession(t *testing.T) {
	g, _, _ := gateFixture(t)
	expired := entity.NewAnonymousSession("expired", "", "", t0.Add(-25*time.Hour))

	rec := httptest.NewRecorder()
	g.Limit(entity.FeatureFitChecks)(status(http.StatusOK)).ServeHTTP(rec, gatedRequest(t, expired))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), respond.MsgSessionExpired)
}

func TestGate_AuthenticatedBypass(t *testing.T) {
	g, _, _ := gateFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/fit-checks", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "u1", Role: auth.RoleUser}))
	rec := httptest.NewRecorder()
	g.Limit(entity.FeatureFitChecks)(status(http.StatusCreated)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderUsage))
}

func TestGate_ResolverToLimitFlow(t *testing.T) {
	svc, now := newSessions(t)
	clock := func() time.Time { return *now }
	res := NewResolver(svc, WithClock(clock))
	g := NewGate(usagelimit.DefaultPolicy(), svc, nil)
	g.now = clock
	h := res.Middleware(g.Limit(entity.FeatureFitChecks)(status(http.StatusCreated)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fit-checks", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := rec.Header().Get(HeaderSessionID)
	require.NotEmpty(t, id)

	req := httptest.NewRequest(http.MethodPost, "/fit-checks", nil)
	req.Header.Set(HeaderSessionID, id)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, id, rec.Header().Get(HeaderSessionID))
}

func TestGate_ParallelRequestsCannotShareLastUse(t *testing.T) {
	g, svc, sess := gateFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusCreated)
	})
	h := g.Limit(entity.FeatureFitChecks)(slow)

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(first, gatedRequest(t, sess))
	}()
	<-started

	// same stale snapshot, while the first request is still with the advisor
	second := httptest.NewRecorder()
	h.ServeHTTP(second, gatedRequest(t, sess))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	close(release)
	<-done
	assert.Equal(t, http.StatusCreated, first.Code)

	stored, err := svc.Get(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Usage.FitChecks)
	assert.Zero(t, g.inflight.len(), "claims are dropped once requests finish")
}

func TestGate_FailedRequestReturnsClaim(t *testing.T) {
	g, _, sess := gateFixture(t)
	h := g.Limit(entity.FeatureFitChecks)

	rec := httptest.NewRecorder()
	h(status(http.StatusServiceUnavailable)).ServeHTTP(rec, gatedRequest(t, sess))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h(status(http.StatusCreated)).ServeHTTP(rec, gatedRequest(t, sess))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestGate_UsageHeaderUsesStoredCount(t *testing.T) {
	g, svc, sess := gateFixture(t)
	ctx := context.Background()
	// two messages counted by other requests after sess was resolved
	for i := 0; i < 2; i++ {
		_, err := svc.IncrementUsage(ctx, sess.SessionID, entity.FeatureChatMessages)
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	g.Limit(entity.FeatureChatMessages)(status(http.StatusCreated)).ServeHTTP(rec, gatedRequest(t, sess))
	require.Equal(t, http.StatusCreated, rec.Code)

	var usage map[string]usagelimit.FeatureUsage
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get(HeaderUsage)), &usage))
	assert.Equal(t, usagelimit.FeatureUsage{Current: 3, Limit: 5, Remaining: 2}, usage["chatMessages"])
}
