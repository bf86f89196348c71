package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jules-backend/internal/domain/entity"
	"jules-backend/pkg/usagelimit"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name         string
		code         int
		data         any
		expectedBody string
	}{
		{name: "map", code: http.StatusOK, data: map[string]string{"message": "success"}, expectedBody: `{"message":"success"}`},
		{name: "struct", code: http.StatusCreated, data: struct{ ID int }{ID: 123}, expectedBody: `{"ID":123}`},
		{name: "nil", code: http.StatusNoContent, data: nil, expectedBody: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSON(w, tt.code, tt.data)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectedBody, strings.TrimSpace(w.Body.String()))
		})
	}
}

func TestSafeError(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		err     error
		wantMsg string
	}{
		{"validation passes through", http.StatusBadRequest, errors.New("userId is required"), "userId is required"},
		{"unknown error is hidden", http.StatusBadRequest, errors.New("pq: relation missing"), "internal server error"},
		{"5xx always hidden", http.StatusInternalServerError, errors.New("invalid state"), "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SafeError(w, tt.code, tt.err)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body["error"])
			assert.Equal(t, tt.code, w.Code)
		})
	}

	w := httptest.NewRecorder()
	SafeError(w, http.StatusBadRequest, nil)
	assert.Zero(t, w.Body.Len())
}

func TestUsageLimitReached_Body(t *testing.T) {
	w := httptest.NewRecorder()
	UsageLimitReached(w, &usagelimit.UsageLimitReachedError{
		Feature: entity.FeatureFitChecks,
		Current: 1,
		Limit:   1,
		Message: "Sign up to get unlimited fit checks!",
	})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{
		"errorKind": "UsageLimitReached",
		"limitType": "fitChecks",
		"currentUsage": 1,
		"limit": 1,
		"remainingUsage": 0,
		"upgradeRequired": true,
		"message": "Sign up to get unlimited fit checks!"
	}`, w.Body.String())
}

func TestDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"usage limit", fmt.Errorf("gate: %w", &usagelimit.UsageLimitReachedError{Feature: entity.FeatureChatMessages, Current: 5, Limit: 5}), http.StatusTooManyRequests, KindUsageLimitReached},
		{"session required", entity.ErrSessionRequired, http.StatusBadRequest, KindSessionRequired},
		{"session expired", entity.ErrSessionExpired, http.StatusBadRequest, KindSessionRequired},
		{"validation", &entity.ValidationError{Field: "userId", Message: "is required"}, http.StatusBadRequest, ""},
		{"unknown feature", fmt.Errorf("%w: %q", entity.ErrUnknownFeature, "x"), http.StatusBadRequest, ""},
		{"session not found", entity.ErrSessionNotFound, http.StatusNotFound, ""},
		{"not found", entity.ErrNotFound, http.StatusNotFound, ""},
		{"duplicate", entity.ErrDuplicateSession, http.StatusConflict, ""},
		{"other", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			DomainError(w, tt.err)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantKind != "" {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.wantKind, body["errorKind"])
			}
		})
	}
}

func TestDomainError_MigrationErrorSanitized(t *testing.T) {
	w := httptest.NewRecorder()
	DomainError(w, &entity.MigrationError{
		Op:        "migrate",
		SessionID: "s",
		Errors:    []string{"dial postgres://app:secret@db:5432/jules: refused"},
		Err:       errors.New("refused"),
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body MigrationErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "migrate failed", body.Error)
	require.Len(t, body.Errors, 1)
	assert.NotContains(t, body.Errors[0], "secret")
}
