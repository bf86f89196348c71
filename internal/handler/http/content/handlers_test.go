package content_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jules-backend/internal/handler/http/anonymous"
	"jules-backend/internal/handler/http/auth"
	contenthttp "jules-backend/internal/handler/http/content"
	"jules-backend/internal/handler/http/respond"
	"jules-backend/internal/infra/adapter/persistence/memory"
	"jules-backend/internal/infra/advisor"
	contentUC "jules-backend/internal/usecase/content"
	sessUC "jules-backend/internal/usecase/session"
	"jules-backend/pkg/usagelimit"
)

type flakyAdvisor struct {
	advisor.Noop
	down bool
}

func (a *flakyAdvisor) ReviewOutfit(ctx context.Context, req advisor.ReviewRequest) (*advisor.Review, error) {
	if a.down {
		return nil, advisor.ErrUnavailable
	}
	return a.Noop.ReviewOutfit(ctx, req)
}

type app struct {
	handler  http.Handler
	sessions *sessUC.Service
	adv      *flakyAdvisor
}

func newApp(t *testing.T) *app {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	sessions := sessUC.NewService(repos.Sessions)
	adv := &flakyAdvisor{}
	svc := contentUC.NewService(store, repos, adv)

	mux := http.NewServeMux()
	contenthttp.Register(mux, svc, anonymous.NewResolver(sessions), anonymous.NewGate(usagelimit.DefaultPolicy(), sessions, nil))
	return &app{handler: mux, sessions: sessions, adv: adv}
}

func (a *app) post(t *testing.T, path, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(anonymous.HeaderSessionID, sessionID)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestFitCheck_OneFreeThenLimited(t *testing.T) {
	a := newApp(t)

	rec := a.post(t, "/fit-checks", "", `{"context":"wedding guest"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sid := rec.Header().Get(anonymous.HeaderSessionID)
	require.NotEmpty(t, sid)

	var fc contenthttp.FitCheckDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "wedding guest", fc.Context)
	assert.Contains(t, rec.Header().Get(anonymous.HeaderUsage), `"remaining":0`)

	rec = a.post(t, "/fit-checks", sid, `{"context":"again"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var body respond.UsageLimitBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "fitChecks", body.LimitType)
	assert.True(t, body.UpgradeRequired)

	req := httptest.NewRequest(http.MethodGet, "/fit-checks", nil)
	req.Header.Set(anonymous.HeaderSessionID, sid)
	list := httptest.NewRecorder()
	a.handler.ServeHTTP(list, req)
	require.Equal(t, http.StatusOK, list.Code)
	var got []contenthttp.FitCheckDTO
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &got))
	assert.Len(t, got, 1)
}

func TestFitCheck_AdvisorDownDoesNotConsumeQuota(t *testing.T) {
	a := newApp(t)
	a.adv.down = true

	rec := a.post(t, "/fit-checks", "", `{"context":"interview"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	sid := rec.Header().Get(anonymous.HeaderSessionID)

	sess, err := a.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.Zero(t, sess.Usage.FitChecks)

	a.adv.down = false
	rec = a.post(t, "/fit-checks", sid, `{"context":"interview"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestChat_FiveMessagesThenLimited(t *testing.T) {
	a := newApp(t)

	rec := a.post(t, "/conversations", "", `{"message":"what goes with olive chinos?"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sid := rec.Header().Get(anonymous.HeaderSessionID)
	var conv contenthttp.ConversationDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	require.Len(t, conv.Messages, 2)

	for i := 0; i < 4; i++ {
		rec = a.post(t, "/conversations/"+conv.ID+"/messages", sid, `{"message":"and shoes?"}`)
		require.Equal(t, http.StatusOK, rec.Code, "message %d", i+2)
	}

	rec = a.post(t, "/conversations/"+conv.ID+"/messages", sid, `{"message":"one more"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	sess, err := a.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, 5, sess.Usage.ChatMessages)
}

func TestChat_ValidationFailureDoesNotConsumeQuota(t *testing.T) {
	a := newApp(t)

	rec := a.post(t, "/conversations", "", `{"message":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	sid := rec.Header().Get(anonymous.HeaderSessionID)

	sess, err := a.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.Zero(t, sess.Usage.ChatMessages)
}

func TestChat_ForeignConversationIsNotFound(t *testing.T) {
	a := newApp(t)

	rec := a.post(t, "/conversations", "", `{"message":"hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var conv contenthttp.ConversationDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

	rec = a.post(t, "/conversations/"+conv.ID+"/messages", "", `{"message":"hijack"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfilePicReview(t *testing.T) {
	a := newApp(t)

	rec := a.post(t, "/profile-pic-reviews", "", `{"context":"dating app","imageUrl":"https://cdn.example.com/p.jpg"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rv advisor.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rv))
	assert.Equal(t, 7, rv.Rating)

	rec = a.post(t, "/profile-pic-reviews", "", `{"imageUrl":"http://insecure.example.com/p.jpg"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthenticatedUsersAreNotLimited(t *testing.T) {
	a := newApp(t)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/fit-checks", strings.NewReader(`{"context":"gym"}`))
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "user-9", Role: auth.RoleUser}))
		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Empty(t, rec.Header().Get(anonymous.HeaderSessionID))
	}

	total, err := a.sessions.CountTotal(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestListRequiresSession(t *testing.T) {
	a := newApp(t)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "SessionRequired")
}
