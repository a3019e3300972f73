// Package metrics provides Prometheus metrics collection for catalog-admin
// operations.
//
// All metrics are optional - if not initialized, components use no-op
// implementations that have zero overhead. A maintenance command runs to
// completion and exits, so metrics are not scraped; WriteTextfile dumps the
// registry for the node exporter's textfile collector instead.
//
// Usage:
//
//	// Initialize global registry (typically in the command's pre-run hook)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	adminMetrics := metrics.NewAdminMetrics()
//	s3Metrics := metrics.NewS3Metrics()
//
//	// Or use nil for no-op behavior
//	admin.EmptyTrash(ctx, repo, admin.TrashOptions{}) // No metrics
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every metric name.
const namespace = "catalog_admin"

var (
	// registry is the global Prometheus registry for all catalog-admin metrics
	// Protected by registryOnce for write-once, read-many pattern
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// This must be called before creating any metrics instances. It's safe to call
// multiple times - subsequent calls are ignored.
//
// If not called, GetRegistry() will return nil and all metrics constructors
// will return no-op implementations.
//
// Thread safety:
// sync.Once provides the necessary memory barriers to ensure the registry
// write is visible to all subsequent reads.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry.
//
// Returns nil if InitRegistry() has not been called, indicating metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if metrics collection is enabled.
//
// Metrics are enabled if InitRegistry() has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// statusLabel maps an error to the status label value.
func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
