package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"jules-backend/internal/pkg/config"
)

// WorkerMetrics holds the worker process collectors. Sweep outcomes are
// counted by the reaper itself; these cover scheduling.
type WorkerMetrics struct {
	*config.ConfigMetrics

	SweepDurationSeconds      prometheus.Histogram
	LastSuccessTimestamp      prometheus.Gauge
	ScheduledRunsSkippedTotal prometheus.Counter
}

// NewWorkerMetrics registers the collectors on reg (nil means the default registerer).
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker", reg),
		SweepDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_sweep_duration_seconds",
			Help:    "Duration of expired-session sweeps in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 30, 60, 300, 900},
		}),
		LastSuccessTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "worker_sweep_last_success_timestamp",
			Help: "Unix timestamp of the last successful sweep",
		}),
		ScheduledRunsSkippedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "worker_sweep_skipped_total",
			Help: "Scheduled sweeps skipped because the previous one was still running",
		}),
	}
}

func (m *WorkerMetrics) RecordSweep(d time.Duration, success bool) {
	m.SweepDurationSeconds.Observe(d.Seconds())
	if success {
		m.LastSuccessTimestamp.SetToCurrentTime()
	}
}

func (m *WorkerMetrics) RecordSkipped() { m.ScheduledRunsSkippedTotal.Inc() }
