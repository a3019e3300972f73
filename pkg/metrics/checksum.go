package metrics

import (
	"sync"
	"time"

	"github.com/marmos91/catalogadmin/pkg/datastore/file"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// checksumMetrics is the Prometheus implementation of file.Metrics.
type checksumMetrics struct {
	digests       *prometheus.CounterVec
	bytesHashed   *prometheus.CounterVec
	digestLatency *prometheus.HistogramVec
}

var (
	checksumOnce     sync.Once
	checksumInstance *checksumMetrics
)

// NewChecksumMetrics creates Prometheus-backed datastore digest metrics.
//
// Returns nil if metrics are not enabled.
func NewChecksumMetrics() file.Metrics {
	if !IsEnabled() {
		return nil
	}
	checksumOnce.Do(func() {
		checksumInstance = newChecksumMetrics(GetRegistry())
	})
	return checksumInstance
}

func newChecksumMetrics(reg prometheus.Registerer) *checksumMetrics {
	return &checksumMetrics{
		digests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "datastore_digests_total",
				Help:      "Artifact digests computed by algorithm and status",
			},
			[]string{"algorithm", "status"},
		),
		bytesHashed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "datastore_bytes_hashed_total",
				Help:      "Artifact bytes read while computing digests",
			},
			[]string{"algorithm"},
		),
		digestLatency: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "datastore_digest_duration_seconds",
				Help:      "Time to read and digest one artifact",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"algorithm"},
		),
	}
}

// ObserveChecksum implements file.Metrics.
func (m *checksumMetrics) ObserveChecksum(algorithm string, bytes int64, duration time.Duration, err error) {
	m.digests.WithLabelValues(algorithm, statusLabel(err)).Inc()
	m.bytesHashed.WithLabelValues(algorithm).Add(float64(bytes))
	m.digestLatency.WithLabelValues(algorithm).Observe(duration.Seconds())
}
