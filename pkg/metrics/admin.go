package metrics

import (
	"sync"
	"time"

	"github.com/marmos91/catalogadmin/pkg/admin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// adminMetrics is the Prometheus implementation of admin.Metrics.
type adminMetrics struct {
	operationsTotal     *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
	lastSuccess         *prometheus.GaugeVec
	checksums           *prometheus.CounterVec
	storageClassUpdates prometheus.Counter
	summaryCollections  *prometheus.GaugeVec
	trashArtifacts      *prometheus.CounterVec
}

var (
	adminOnce     sync.Once
	adminInstance *adminMetrics
)

// NewAdminMetrics creates Prometheus-backed admin operation metrics.
//
// Returns nil if metrics are not enabled, which makes every operation fall
// back to its no-op implementation.
func NewAdminMetrics() admin.Metrics {
	if !IsEnabled() {
		return nil
	}
	adminOnce.Do(func() {
		adminInstance = newAdminMetrics(GetRegistry())
	})
	return adminInstance
}

func newAdminMetrics(reg prometheus.Registerer) *adminMetrics {
	return &adminMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of maintenance operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of maintenance operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10), // 100ms .. ~7h
			},
			[]string{"operation"},
		),
		lastSuccess: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run of each operation",
			},
			[]string{"operation"},
		),
		checksums: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checksums_total",
				Help:      "Datasets visited by checksum backfill by outcome",
			},
			[]string{"outcome"}, // updated, skipped, failed
		),
		storageClassUpdates: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_class_updates_total",
				Help:      "Dataset type records rebound to a new storage class",
			},
		),
		summaryCollections: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "summary_audit_collections",
				Help:      "Collections checked by the last summary audit by result",
			},
			[]string{"result"}, // consistent, drifted
		),
		trashArtifacts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trash_artifacts_total",
				Help:      "Trashed artifacts removed, or reported by a dry run",
			},
			[]string{"mode"}, // removed, dry_run
		),
	}
}

// ObserveOperation implements admin.Metrics.
func (m *adminMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err == nil {
		m.lastSuccess.WithLabelValues(operation).SetToCurrentTime()
	}
}

// RecordChecksums implements admin.Metrics.
func (m *adminMetrics) RecordChecksums(updated, skipped, failed int) {
	m.checksums.WithLabelValues("updated").Add(float64(updated))
	m.checksums.WithLabelValues("skipped").Add(float64(skipped))
	m.checksums.WithLabelValues("failed").Add(float64(failed))
}

// RecordStorageClassUpdates implements admin.Metrics.
func (m *adminMetrics) RecordStorageClassUpdates(rows int) {
	m.storageClassUpdates.Add(float64(rows))
}

// RecordSummaryAudit implements admin.Metrics.
func (m *adminMetrics) RecordSummaryAudit(consistent, drifted int) {
	m.summaryCollections.WithLabelValues("consistent").Set(float64(consistent))
	m.summaryCollections.WithLabelValues("drifted").Set(float64(drifted))
}

// RecordTrash implements admin.Metrics.
func (m *adminMetrics) RecordTrash(artifacts int, dryRun bool) {
	mode := "removed"
	if dryRun {
		mode = "dry_run"
	}
	m.trashArtifacts.WithLabelValues(mode).Add(float64(artifacts))
}
