package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jules-backend/internal/handler/http/requestid"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output should be valid JSON: %s", buf.String())
	return entry
}

func TestNew_JSONAndLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "")

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("session expired", slog.String("reason", "expired"))
	entry := decode(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "expired", entry["reason"])
	assert.NotNil(t, entry["source"], "warn level enables source location")
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "text").Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info", "json")

	ctx := requestid.WithRequestID(context.Background(), "req-123")
	WithRequestID(ctx, base).Info("x")
	assert.Equal(t, "req-123", decode(t, &buf)["request_id"])

	buf.Reset()
	WithRequestID(context.Background(), base).Info("y")
	_, ok := decode(t, &buf)["request_id"]
	assert.False(t, ok)
}

func TestWithSession_Truncates(t *testing.T) {
	var buf bytes.Buffer
	id := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

	WithSession(New(&buf, "info", "json"), id).Info("resolved")

	entry := decode(t, &buf)
	assert.Equal(t, "01234567...", entry["session"])
	assert.NotContains(t, buf.String(), id)
}

func TestContextRoundTrip(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	logger := New(&bytes.Buffer{}, "", "")
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}
