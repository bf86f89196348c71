package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthServer_Probes(t *testing.T) {
	var storeErr error
	hs := NewHealthServer(":0", func(context.Context) error { return storeErr }, slog.Default())
	h := hs.Handler()

	assert.Equal(t, http.StatusOK, serve(h, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, "/ready").Code, "not ready before SetReady")

	hs.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(h, "/ready").Code)

	storeErr = errors.New("connection refused")
	rr := serve(h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "session store unavailable")
	assert.NotContains(t, rr.Body.String(), "connection refused")

	assert.Equal(t, http.StatusOK, serve(h, "/metrics").Code)
}

func TestHealthServer_StartStops(t *testing.T) {
	hs := NewHealthServer("127.0.0.1:0", nil, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- hs.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(6 * time.Second):
		t.Fatal("health server did not stop")
	}
}
