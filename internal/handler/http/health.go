// Package http holds the cross-cutting HTTP layer of the API: middleware,
// request metrics, input limits and the health endpoints. Feature routes
// live in the subpackages.
package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"jules-backend/internal/resilience/circuitbreaker"
)

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "unhealthy"
	Timestamp string                 `json:"timestamp"` // RFC 3339
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus is the result of one health check.
type CheckStatus struct {
	Status  string         `json:"status"` // "healthy", "degraded" or "unhealthy"
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Pinger is implemented by every session store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a probe function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// VisitorCounter reports how many clients the creation throttle tracks.
type VisitorCounter interface {
	Len() int
}

// HealthHandler reports storage reachability plus informational state for
// the store circuit breakers and the session creation throttle. Only a
// storage failure makes the service unhealthy.
type HealthHandler struct {
	Store   Pinger
	Driver  string  // "postgres", "mongo" or "memory"
	DB      *sql.DB // set for postgres to report pool statistics
	Version string

	Breakers []*circuitbreaker.CircuitBreaker
	Throttle VisitorCounter
}

// ServeHTTP ヘルスチェック
// @Summary      Service health
// @Tags         ops
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]CheckStatus)
	storage := h.checkStorage(ctx)
	checks["storage"] = storage

	if len(h.Breakers) > 0 {
		checks["circuit_breakers"] = h.checkBreakers()
	}
	if h.Throttle != nil {
		checks["session_throttle"] = CheckStatus{
			Status:  "healthy",
			Details: map[string]any{"tracked_clients": h.Throttle.Len()},
		}
	}

	status, code := "healthy", http.StatusOK
	if storage.Status == "unhealthy" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}); err != nil {
		slog.Warn("health: failed to encode response", slog.Any("error", err))
	}
}

func (h *HealthHandler) checkStorage(ctx context.Context) CheckStatus {
	if h.Store == nil {
		return CheckStatus{Status: "unhealthy", Message: "not configured"}
	}
	if err := h.Store.Ping(ctx); err != nil {
		return CheckStatus{Status: "unhealthy", Message: err.Error(), Details: map[string]any{"driver": h.Driver}}
	}
	if h.DB == nil {
		return CheckStatus{Status: "healthy", Details: map[string]any{"driver": h.Driver}}
	}
	return poolStatus(h.Driver, h.DB.Stats())
}

// poolStatus reports a pool that is unbounded or above 80% in use as degraded.
func poolStatus(driver string, stats sql.DBStats) CheckStatus {
	details := map[string]any{
		"driver":               driver,
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
	if stats.MaxOpenConnections == 0 {
		return CheckStatus{Status: "degraded", Message: "connection pool max connections not configured", Details: details}
	}

	utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
	details["utilization_percent"] = utilization
	if utilization >= 80.0 {
		return CheckStatus{Status: "degraded", Message: "connection pool utilization above 80%", Details: details}
	}
	return CheckStatus{Status: "healthy", Details: details}
}

// checkBreakers is informational: an open store breaker means the resolver
// is failing open, which is degraded service rather than an outage.
func (h *HealthHandler) checkBreakers() CheckStatus {
	details := make(map[string]any, len(h.Breakers))
	status := "healthy"
	for _, cb := range h.Breakers {
		details[cb.Name()] = cb.State().String()
		if cb.IsOpen() {
			status = "degraded"
		}
	}
	return CheckStatus{Status: status, Details: details}
}

// ReadyHandler is the readiness probe: 200 once storage answers a ping.
type ReadyHandler struct {
	Store Pinger
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.Store == nil {
		http.Error(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.Store.Ping(ctx); err != nil {
		http.Error(w, "storage not ready: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LiveHandler is the liveness probe.
type LiveHandler struct{}

func (LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
