package s3

import "time"

// Metrics observes the S3 requests issued by the store. Implementations
// must be safe for concurrent use.
type Metrics interface {
	// ObserveOperation records one S3 request ("GetObject", "PutObject",
	// "DeleteObjects", ...).
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes counts frame bytes moved by operation.
	RecordBytes(operation string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordBytes(string, int64)                     {}
