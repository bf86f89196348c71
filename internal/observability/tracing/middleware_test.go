package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"jules-backend/internal/handler/http/requestid"
)

func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())
	})
	return exporter
}

func TestMiddleware_CreatesServerSpan(t *testing.T) {
	exporter := installRecorder(t)

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/migration/migrate", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /migration/migrate", spans[0].Name)
	assert.Len(t, rr.Header().Get("X-Trace-Id"), 32)

	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, int64(201), attrs["http.status_code"])
	assert.Equal(t, "/migration/migrate", attrs["http.path"])
}

func TestMiddleware_NamesSpanByRoute(t *testing.T) {
	exporter := installRecorder(t)

	h := requestid.Middleware(Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))
	req := httptest.NewRequest(http.MethodPost, "/admin/sessions/9b1deb4d3b7d4bad9bdd2b0d7b3dcb6d/extend", nil)
	req.Header.Set(requestid.RequestIDHeader, "req-42")
	req.Header.Set("X-Anonymous-Session-ID", "9b1deb4d3b7d4bad9bdd2b0d7b3dcb6d")
	h.ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /admin/sessions/:id/extend", spans[0].Name)

	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "/admin/sessions/:id/extend", attrs["http.route"])
	assert.Equal(t, "req-42", attrs["request.id"])
	assert.Equal(t, true, attrs["anonymous.session_presented"])
}

func TestMiddleware_ContinuesIncomingTrace(t *testing.T) {
	exporter := installRecorder(t)

	h := Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
}

func TestMiddleware_MarksServerErrors(t *testing.T) {
	exporter := installRecorder(t)

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/cleanup", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestStartSpan_EndSpanRecordsError(t *testing.T) {
	exporter := installRecorder(t)

	_, span := StartSpan(context.Background(), "migration.rollback")
	EndSpan(span, errors.New("tx aborted"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "migration.rollback", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestInitTracerProvider(t *testing.T) {
	shutdown := InitTracerProvider("jules-backend-test", 1.0)
	t.Cleanup(func() {
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())
	})

	_, span := StartSpan(context.Background(), "probe")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}
