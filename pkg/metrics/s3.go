package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	frames3 "github.com/marmos91/stonify/pkg/store/frame/s3"
)

// s3Metrics is the Prometheus implementation of frames3.Metrics.
type s3Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	bytes      *prometheus.CounterVec
}

// NewS3Metrics creates Prometheus metrics for the S3 frame store named
// store.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes the store fall back to its no-op implementation.
func NewS3Metrics(store string) frames3.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	labels := prometheus.Labels{"store": store}

	return &s3Metrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "stonify_s3_operations_total",
				Help:        "S3 requests by operation and status",
				ConstLabels: labels,
			},
			[]string{"operation", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "stonify_s3_operation_duration_seconds",
				Help:        "Duration of S3 requests in seconds",
				ConstLabels: labels,
				Buckets: []float64{
					0.005, // 5ms
					0.01,
					0.025,
					0.05,
					0.1,
					0.25,
					0.5,
					1.0,
					2.5,
					5.0,
				},
			},
			[]string{"operation"},
		),
		bytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "stonify_s3_bytes_total",
				Help:        "Frame bytes moved to or from S3",
				ConstLabels: labels,
			},
			[]string{"direction"}, // read or write
		),
	}
}

func (m *s3Metrics) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *s3Metrics) RecordBytes(direction string, bytes int64) {
	m.bytes.WithLabelValues(direction).Add(float64(bytes))
}
