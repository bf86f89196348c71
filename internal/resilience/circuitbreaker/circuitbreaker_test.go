package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"

	"jules-backend/internal/observability/metrics"
)

func testConfig(name string, timeout time.Duration) Config {
	return Config{
		Name:             name,
		MaxRequests:      2,
		Interval:         10 * time.Second,
		Timeout:          timeout,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

func fail(cb *CircuitBreaker, n int) {
	boom := errors.New("store down")
	for i := 0; i < n; i++ {
		_, _ = Do(cb, func() (int, error) { return 0, boom })
	}
}

func TestDo_PassesThrough(t *testing.T) {
	cb := New(testConfig("pass", time.Second))

	got, err := Do(cb, func() (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Fatalf("Do = %q, %v", got, err)
	}

	boom := errors.New("boom")
	if _, err := Do(cb, func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Fatalf("single failure must not trip, state=%v", cb.State())
	}
}

func TestDo_NilBreakerCallsDirectly(t *testing.T) {
	got, err := Do(nil, func() (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Fatalf("Do(nil) = %d, %v", got, err)
	}
}

func TestCircuitBreaker_TripsOpen(t *testing.T) {
	cb := New(testConfig("trip", time.Second))

	// below MinRequests the ratio is not evaluated
	fail(cb, 4)
	if cb.IsOpen() {
		t.Fatal("tripped before MinRequests")
	}

	fail(cb, 1)
	if !cb.IsOpen() {
		t.Fatalf("expected open, got %v", cb.State())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("trip")); got != 2 {
		t.Errorf("state gauge = %v, want 2", got)
	}

	_, err := Do(cb, func() (*struct{}, error) {
		t.Error("fn must not run while open")
		return nil, nil
	})
	if !Rejected(err) {
		t.Fatalf("want rejection, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerRejectionsTotal.WithLabelValues("trip")); got != 1 {
		t.Errorf("rejections = %v, want 1", got)
	}
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := New(testConfig("recover", 100*time.Millisecond))
	fail(cb, 6)
	if !cb.IsOpen() {
		t.Fatalf("circuit should be open, got %v", cb.State())
	}

	time.Sleep(150 * time.Millisecond)

	if _, err := Do(cb, func() (string, error) { return "ok", nil }); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if cb.IsOpen() {
		t.Fatalf("circuit should not be open after a successful probe, got %v", cb.State())
	}
}

func TestRejected(t *testing.T) {
	if Rejected(errors.New("boom")) || Rejected(nil) {
		t.Error("plain errors are not rejections")
	}
	if !Rejected(gobreaker.ErrTooManyRequests) {
		t.Error("ErrTooManyRequests is a rejection")
	}
}

func TestPresetConfigs(t *testing.T) {
	for _, cfg := range []Config{SessionStoreConfig(), OpenAIAPIConfig()} {
		t.Run(cfg.Name, func(t *testing.T) {
			if cfg.FailureThreshold <= 0 || cfg.FailureThreshold > 1 {
				t.Errorf("FailureThreshold = %v", cfg.FailureThreshold)
			}
			if cfg.MinRequests == 0 || cfg.Timeout <= 0 {
				t.Errorf("incomplete config %+v", cfg)
			}
			if New(cfg).Name() != cfg.Name {
				t.Error("breaker name mismatch")
			}
			if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues(cfg.Name)); got != 0 {
				t.Errorf("new breaker state gauge = %v, want 0", got)
			}
		})
	}
}
