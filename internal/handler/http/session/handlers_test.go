package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/handler/http/anonymous"
	sessionhttp "jules-backend/internal/handler/http/session"
	"jules-backend/internal/infra/adapter/persistence/memory"
	sessUC "jules-backend/internal/usecase/session"
	"jules-backend/pkg/usagelimit"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*http.ServeMux, *sessUC.Service) {
	t.Helper()
	svc := sessUC.NewService(memory.NewStore().Repositories().Sessions)
	svc.Now = func() time.Time { return now }
	res := anonymous.NewResolver(svc, anonymous.WithClock(func() time.Time { return now }))

	mux := http.NewServeMux()
	noGuard := func(h http.Handler) http.Handler { return h }
	sessionhttp.Register(mux, res, usagelimit.DefaultPolicy(), svc, noGuard)
	return mux, svc
}

func TestCreateSession(t *testing.T) {
	mux, svc := setup(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/anonymous/session", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got sessionhttp.DTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, rec.Header().Get(anonymous.HeaderSessionID), got.SessionID)
	assert.Equal(t, now.Add(entity.SessionTTL), got.ExpiresAt.UTC())
	assert.Equal(t, usagelimit.FeatureUsage{Current: 0, Limit: 5, Remaining: 5}, got.Usage[entity.FeatureChatMessages])

	_, err := svc.Get(context.Background(), got.SessionID)
	assert.NoError(t, err)

	// replaying the id adopts the same session
	req := httptest.NewRequest(http.MethodPost, "/anonymous/session", nil)
	req.Header.Set(anonymous.HeaderSessionID, got.SessionID)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, got.SessionID, rec.Header().Get(anonymous.HeaderSessionID))

	total, err := svc.CountTotal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestGetSession(t *testing.T) {
	mux, svc := setup(t)
	sess, err := svc.Create(context.Background(), sessUC.CreateInput{})
	require.NoError(t, err)

	t.Run("known", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/anonymous/session?sessionId="+sess.SessionID, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), sess.SessionID)
	})

	t.Run("unknown is session required and creates nothing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/anonymous/session", nil)
		req.Header.Set(anonymous.HeaderSessionID, "nope")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"errorKind":"SessionRequired"`)

		total, err := svc.CountTotal(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})
}

func TestUsage(t *testing.T) {
	mux, svc := setup(t)
	sess, err := svc.Create(context.Background(), sessUC.CreateInput{})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := svc.IncrementUsage(context.Background(), sess.SessionID, entity.FeatureChatMessages)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/anonymous/usage", nil)
	req.Header.Set(anonymous.HeaderSessionID, sess.SessionID)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got sessionhttp.UsageDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, usagelimit.FeatureUsage{Current: 2, Limit: 5, Remaining: 3}, got.Usage[entity.FeatureChatMessages])
	assert.NotEmpty(t, rec.Header().Get(anonymous.HeaderUsage))
}

func TestExtend(t *testing.T) {
	mux, svc := setup(t)
	sess, err := svc.Create(context.Background(), sessUC.CreateInput{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		id       string
		body     string
		wantCode int
	}{
		{name: "ok", id: sess.SessionID, body: `{"hours":48}`, wantCode: http.StatusOK},
		{name: "missing session", id: "nope", body: `{"hours":1}`, wantCode: http.StatusNotFound},
		{name: "zero hours", id: sess.SessionID, body: `{"hours":0}`, wantCode: http.StatusBadRequest},
		{name: "too many hours", id: sess.SessionID, body: `{"hours":1000}`, wantCode: http.StatusBadRequest},
		{name: "bad json", id: sess.SessionID, body: `{`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/sessions/"+tt.id+"/extend", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	got, err := svc.Get(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(48*time.Hour), got.ExpiresAt)
}
