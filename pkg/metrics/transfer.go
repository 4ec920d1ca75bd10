package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TransferMetrics observes frame transfer jobs.
//
// Passing nil to a transfer job selects the no-op implementation.
type TransferMetrics interface {
	// RecordFrame records one frame operation.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: size of the frame buffer
	//   - duration: time spent in the remote call
	//   - err: error if the operation failed, nil otherwise
	RecordFrame(direction string, bytes int, duration time.Duration, err error)

	// RecordJob records a job reaching a terminal state.
	RecordJob(state string, duration time.Duration)

	// RecordCleanupFailures counts duplicate clips that could not be deleted.
	RecordCleanupFailures(n int)

	// SetActiveJobs updates the number of running jobs.
	SetActiveJobs(delta int)
}

type transferMetrics struct {
	frames          *prometheus.CounterVec
	frameBytes      *prometheus.CounterVec
	frameDuration   *prometheus.HistogramVec
	jobs            *prometheus.CounterVec
	jobDuration     prometheus.Histogram
	cleanupFailures prometheus.Counter
	activeJobs      prometheus.Gauge
}

// NewTransferMetrics creates a Prometheus-backed TransferMetrics, or a no-op
// implementation if the registry is not initialized.
func NewTransferMetrics() TransferMetrics {
	if !IsEnabled() {
		return NewNoopTransferMetrics()
	}

	reg := GetRegistry()

	return &transferMetrics{
		frames: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stonify_transfer_frames_total",
				Help: "Total number of frame reads and writes by status",
			},
			[]string{"direction", "status"},
		),
		frameBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stonify_transfer_bytes_total",
				Help: "Total frame bytes read from sources and written to destinations",
			},
			[]string{"direction"},
		),
		frameDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "stonify_transfer_frame_duration_seconds",
				Help: "Duration of single frame reads and writes",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1,     // 1s
					5,     // 5s
				},
			},
			[]string{"direction"},
		),
		jobs: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stonify_transfer_jobs_total",
				Help: "Total number of transfer jobs by terminal state",
			},
			[]string{"state"},
		),
		jobDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stonify_transfer_job_duration_seconds",
				Help:    "Wall time of transfer jobs",
				Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
			},
		),
		cleanupFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "stonify_transfer_cleanup_failures_total",
				Help: "Duplicate clips that survived an overwrite",
			},
		),
		activeJobs: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "stonify_transfer_active_jobs",
				Help: "Number of transfer jobs currently running",
			},
		),
	}
}

func (m *transferMetrics) RecordFrame(direction string, bytes int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.frames.WithLabelValues(direction, status).Inc()
	m.frameDuration.WithLabelValues(direction).Observe(duration.Seconds())
	if err == nil {
		m.frameBytes.WithLabelValues(direction).Add(float64(bytes))
	}
}

func (m *transferMetrics) RecordJob(state string, duration time.Duration) {
	m.jobs.WithLabelValues(state).Inc()
	m.jobDuration.Observe(duration.Seconds())
}

func (m *transferMetrics) RecordCleanupFailures(n int) {
	m.cleanupFailures.Add(float64(n))
}

func (m *transferMetrics) SetActiveJobs(delta int) {
	m.activeJobs.Add(float64(delta))
}

// NewNoopTransferMetrics returns a TransferMetrics that records nothing.
func NewNoopTransferMetrics() TransferMetrics {
	return noopTransferMetrics{}
}

type noopTransferMetrics struct{}

func (noopTransferMetrics) RecordFrame(string, int, time.Duration, error) {}
func (noopTransferMetrics) RecordJob(string, time.Duration)               {}
func (noopTransferMetrics) RecordCleanupFailures(int)                     {}
func (noopTransferMetrics) SetActiveJobs(int)                             {}
