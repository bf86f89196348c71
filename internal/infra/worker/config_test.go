package worker

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMetrics() *WorkerMetrics {
	return NewWorkerMetrics(prometheus.NewRegistry())
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "*/15 * * * *", cfg.CronSchedule)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := WorkerConfig{
		CronSchedule:     "nope",
		Timezone:         "Nowhere/City",
		CleanupTimeout:   time.Second,
		CleanupBatchSize: 0,
		HealthPort:       80,
	}
	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"cron schedule", "timezone", "cleanup timeout", "cleanup batch size", "health port"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestLoadConfigFromEnv_ValidValues(t *testing.T) {
	t.Setenv("CRON_SCHEDULE", "@hourly")
	t.Setenv("WORKER_TIMEZONE", "Asia/Tokyo")
	t.Setenv("CLEANUP_TIMEOUT", "2m")
	t.Setenv("CLEANUP_BATCH_SIZE", "500")
	t.Setenv("WORKER_HEALTH_PORT", "9200")
	t.Setenv("CLEANUP_RUN_ON_START", "false")
	m := testMetrics()

	cfg := LoadConfigFromEnv(slog.Default(), m)

	assert.Equal(t, WorkerConfig{
		CronSchedule:     "@hourly",
		Timezone:         "Asia/Tokyo",
		CleanupTimeout:   2 * time.Minute,
		CleanupBatchSize: 500,
		HealthPort:       9200,
		RunOnStart:       false,
	}, *cfg)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.FallbackActive))
}

func TestLoadConfigFromEnv_FailOpen(t *testing.T) {
	t.Setenv("CRON_SCHEDULE", "every now and then")
	t.Setenv("CLEANUP_TIMEOUT", "3h")
	m := testMetrics()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg := LoadConfigFromEnv(logger, m)

	def := DefaultConfig()
	assert.Equal(t, def.CronSchedule, cfg.CronSchedule)
	assert.Equal(t, def.CleanupTimeout, cfg.CleanupTimeout)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FallbackActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("cron_schedule")))
	assert.Contains(t, buf.String(), "configuration fallback applied")
}
