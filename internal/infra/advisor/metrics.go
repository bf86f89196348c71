package advisor

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRecorder abstracts model-call instrumentation so tests can inject a fake.
type MetricsRecorder interface {
	RecordRequest(operation string, d time.Duration, err error)
}

// PrometheusMetrics records model calls as jules_advisor_* collectors.
type PrometheusMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	promOnce    sync.Once
	promMetrics *PrometheusMetrics
)

// NewPrometheusMetrics returns the process-wide recorder; the collectors are
// registered on first use.
func NewPrometheusMetrics() *PrometheusMetrics {
	promOnce.Do(func() {
		promMetrics = &PrometheusMetrics{
			requests: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "jules_advisor_requests_total",
				Help: "Model calls by operation and status",
			}, []string{"operation", "status"}),
			duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "jules_advisor_request_duration_seconds",
				Help:    "Model call latency in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
			}, []string{"operation"}),
		}
	})
	return promMetrics
}

func (m *PrometheusMetrics) RecordRequest(operation string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.requests.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}
