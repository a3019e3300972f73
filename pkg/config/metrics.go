package config

import (
	"github.com/marmos91/catalogadmin/pkg/admin"
	artifacts3 "github.com/marmos91/catalogadmin/pkg/datastore/artifact/s3"
	"github.com/marmos91/catalogadmin/pkg/datastore/file"
	"github.com/marmos91/catalogadmin/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
//
// Every field is nil when metrics are disabled; consumers substitute their
// own no-op implementations.
type MetricsResult struct {
	// Admin observes the maintenance operations
	Admin admin.Metrics

	// S3 observes S3 artifact store calls
	S3 artifacts3.S3Metrics

	// Checksums observes datastore digests
	Checksums file.Metrics

	// Textfile is where Flush writes the registry ("" when disabled)
	Textfile string
}

// InitializeMetrics creates all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns an empty result (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Admin:     metrics.NewAdminMetrics(),
		S3:        metrics.NewS3Metrics(),
		Checksums: metrics.NewChecksumMetrics(),
		Textfile:  cfg.resolve(cfg.Metrics.Textfile),
	}
}

// Flush writes collected metrics to the configured textfile.
func (m *MetricsResult) Flush() error {
	if m == nil || m.Textfile == "" {
		return nil
	}
	return metrics.WriteTextfile(m.Textfile)
}
