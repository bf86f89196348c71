package anonymous

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"jules-backend/pkg/config"
)

// Throttle limits how fast a single client may mint new sessions. Each key
// (client IP) gets its own token bucket; buckets idle longer than the idle
// window are dropped by Cleanup.
type Throttle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*visitor

	now func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle allows perMinute creations per key with the given burst.
//
// Example:
//
//	t := NewThrottle(10, 5) // 10 new sessions per minute, 5 at once
func NewThrottle(perMinute float64, burst int) *Throttle {
	return &Throttle{
		limit:    rate.Limit(perMinute / 60),
		burst:    max(1, burst),
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// LoadThrottleFromEnv reads SESSION_CREATE_RATE (per minute, default 10) and
// SESSION_CREATE_BURST (default 5). A rate of zero or less disables the
// throttle and returns nil.
func LoadThrottleFromEnv() *Throttle {
	perMinute := config.GetEnvInt("SESSION_CREATE_RATE", 10)
	if perMinute <= 0 {
		return nil
	}
	return NewThrottle(float64(perMinute), config.GetEnvInt("SESSION_CREATE_BURST", 5))
}

// Allow consumes one token for key and reports whether it was available.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	v, ok := t.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Cleanup drops keys not seen since cutoff and returns how many were removed.
func (t *Throttle) Cleanup(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, v := range t.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(t.visitors, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.visitors)
}

// StartCleanup runs Cleanup every interval until ctx is cancelled. Keys idle
// for longer than idle are removed.
func (t *Throttle) StartCleanup(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("session throttle cleanup started",
		slog.Duration("interval", interval),
		slog.Duration("idle", idle))

	for {
		select {
		case <-ctx.Done():
			slog.Info("session throttle cleanup stopped")
			return
		case <-ticker.C:
			before := t.Len()
			removed := t.Cleanup(t.now().Add(-idle))
			slog.Debug("session throttle cleanup completed",
				slog.Int("active_keys_before", before),
				slog.Int("keys_removed", removed))
		}
	}
}
