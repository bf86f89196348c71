// Package worker holds the reaper worker's configuration, metrics and
// health endpoints.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jules-backend/internal/pkg/config"
)

// WorkerConfig controls the expired-session sweep schedule.
type WorkerConfig struct {
	// CronSchedule is a five-field cron expression or descriptor.
	CronSchedule string
	// Timezone is the IANA zone the schedule is evaluated in.
	Timezone string
	// CleanupTimeout bounds one sweep (10s to 1h).
	CleanupTimeout time.Duration
	// CleanupBatchSize is the page size of the expired-session query (1 to 10000).
	CleanupBatchSize int
	// HealthPort serves /health, /ready and /metrics (1024 to 65535).
	HealthPort int
	// RunOnStart triggers one sweep right after startup.
	RunOnStart bool
}

// DefaultConfig sweeps every 15 minutes, well inside the 24h session TTL.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:     "*/15 * * * *",
		Timezone:         "UTC",
		CleanupTimeout:   5 * time.Minute,
		CleanupBatchSize: 100,
		HealthPort:       9091,
		RunOnStart:       true,
	}
}

func validTimeout(d time.Duration) error { return config.ValidateDuration(d, 10*time.Second, time.Hour) }
func validBatch(v int) error { return config.ValidateIntRange(v, 1, 10000) }
func validPort(v int) error { return config.ValidateIntRange(v, 1024, 65535) }

// Validate reports every invalid field at once.
func (c *WorkerConfig) Validate() error {
	var errs []error
	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := validTimeout(c.CleanupTimeout); err != nil {
		errs = append(errs, fmt.Errorf("cleanup timeout: %w", err))
	}
	if err := validBatch(c.CleanupBatchSize); err != nil {
		errs = append(errs, fmt.Errorf("cleanup batch size: %w", err))
	}
	if err := validPort(c.HealthPort); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the schedule's time zone, UTC if it cannot be loaded.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfigFromEnv reads the worker settings. Invalid values fall back to
// their defaults with a warning and a fallback metric; the returned config is
// always valid.
//
// Environment variables:
//   - CRON_SCHEDULE (default "*/15 * * * *")
//   - WORKER_TIMEZONE (default "UTC")
//   - CLEANUP_TIMEOUT (default "5m")
//   - CLEANUP_BATCH_SIZE (default 100)
//   - WORKER_HEALTH_PORT (default 9091)
//   - CLEANUP_RUN_ON_START (default true)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()
	fallback := false

	note := func(field, warning string, applied bool) {
		if !applied {
			return
		}
		fallback = true
		metrics.RecordFallback(field)
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}

	schedule := config.LoadString("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = schedule.Value
	note("cron_schedule", schedule.Warning, schedule.FallbackApplied)

	tz := config.LoadString("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tz.Value
	note("timezone", tz.Warning, tz.FallbackApplied)

	timeout := config.LoadDuration("CLEANUP_TIMEOUT", cfg.CleanupTimeout, validTimeout)
	cfg.CleanupTimeout = timeout.Value
	note("cleanup_timeout", timeout.Warning, timeout.FallbackApplied)

	batch := config.LoadInt("CLEANUP_BATCH_SIZE", cfg.CleanupBatchSize, validBatch)
	cfg.CleanupBatchSize = batch.Value
	note("cleanup_batch_size", batch.Warning, batch.FallbackApplied)

	port := config.LoadInt("WORKER_HEALTH_PORT", cfg.HealthPort, validPort)
	cfg.HealthPort = port.Value
	note("health_port", port.Warning, port.FallbackApplied)

	runOnStart := config.LoadBool("CLEANUP_RUN_ON_START", cfg.RunOnStart)
	cfg.RunOnStart = runOnStart.Value
	note("run_on_start", runOnStart.Warning, runOnStart.FallbackApplied)

	metrics.SetFallbackActive(fallback)
	metrics.RecordLoadTimestamp()
	return &cfg
}
