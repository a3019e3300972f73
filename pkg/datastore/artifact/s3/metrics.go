package s3

import (
	"io"
	"time"
)

// S3Metrics receives observations about S3 calls made by the artifact store.
//
// A nil S3Metrics passed to NewS3ArtifactStore is replaced by a no-op
// implementation, so collection can be disabled without nil checks.
type S3Metrics interface {
	// ObserveOperation records the latency and outcome of one S3 call.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes transferred ("read" or "write").
	RecordBytes(direction string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordBytes(string, int64)                     {}

// metricsReadCloser counts bytes as the body is consumed.
type metricsReadCloser struct {
	io.ReadCloser
	metrics   S3Metrics
	direction string
}

func (r *metricsReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		r.metrics.RecordBytes(r.direction, int64(n))
	}
	return n, err
}
