// Package reaper runs the expired-session sweep on a schedule or on demand.
package reaper

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"jules-backend/internal/observability/metrics"
	"jules-backend/internal/usecase/migration"
)

// ErrAlreadyRunning is returned by Run while another sweep is in progress.
var ErrAlreadyRunning = errors.New("reaper: sweep already running")

// Cleaner performs one sweep.
type Cleaner interface {
	CleanupExpiredSessions(ctx context.Context) (*migration.CleanupResult, error)
}

// StatsSource refreshes the active-session gauge after a sweep. Optional.
type StatsSource interface {
	Stats(ctx context.Context) (*migration.Stats, error)
}

// SweepObserver is told about every scheduled tick.
type SweepObserver interface {
	RecordSweep(d time.Duration, success bool)
	RecordSkipped()
}

// Reaper wraps a Cleaner with timeout, overlap protection, logging and metrics.
type Reaper struct {
	Cleaner  Cleaner
	Stats    StatsSource
	Timeout  time.Duration
	Logger   *slog.Logger
	Observer SweepObserver

	running atomic.Bool
}

// New returns a Reaper bounded by timeout per sweep.
func New(cleaner Cleaner, stats StatsSource, timeout time.Duration, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{Cleaner: cleaner, Stats: stats, Timeout: timeout, Logger: logger}
}

// Run performs one sweep. Overlapping calls fail fast with ErrAlreadyRunning.
func (r *Reaper) Run(ctx context.Context) (*migration.CleanupResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	r.Logger.Info("expired session sweep started")

	res, err := r.Cleaner.CleanupExpiredSessions(ctx)
	deleted := 0
	if res != nil {
		deleted = res.SessionsDeleted
	}

	switch {
	case err != nil:
		metrics.RecordReaperRun("failure", deleted)
		r.Logger.Error("expired session sweep failed",
			slog.Int("sessions_deleted", deleted),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return res, err
	case res.SessionsFailed > 0:
		metrics.RecordReaperRun("partial", deleted)
	default:
		metrics.RecordReaperRun("success", deleted)
	}

	r.Logger.Info("expired session sweep completed",
		slog.Int("sessions_deleted", res.SessionsDeleted),
		slog.Int("fit_checks_deleted", res.FitChecksDeleted),
		slog.Int("conversations_deleted", res.ConversationsDeleted),
		slog.Int("orphans_deleted", res.OrphansDeleted),
		slog.Int("sessions_failed", res.SessionsFailed),
		slog.Duration("duration", time.Since(start)))

	if r.Stats != nil {
		// Stats updates the active-session gauge as a side effect.
		if _, err := r.Stats.Stats(ctx); err != nil {
			r.Logger.Warn("failed to refresh session stats", slog.Any("error", err))
		}
	}
	return res, nil
}

// Schedule registers the sweep on c. Each tick runs with a fresh background
// context; a tick that overlaps a running sweep is skipped.
func (r *Reaper) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, r.tick)
}

func (r *Reaper) tick() {
	start := time.Now()
	_, err := r.Run(context.Background())
	if errors.Is(err, ErrAlreadyRunning) {
		r.Logger.Warn("skipping sweep, previous run still in progress")
		if r.Observer != nil {
			r.Observer.RecordSkipped()
		}
		return
	}
	if r.Observer != nil {
		r.Observer.RecordSweep(time.Since(start), err == nil)
	}
}

// IsRunning reports whether a sweep is in progress.
func (r *Reaper) IsRunning() bool {
	return r.running.Load()
}
