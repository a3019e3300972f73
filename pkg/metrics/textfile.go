package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes the global registry to path in the Prometheus text
// exposition format. The write is atomic, so a collector never reads a
// partial file. Nothing is written when metrics are disabled.
func WriteTextfile(path string) error {
	if !IsEnabled() {
		return nil
	}
	return writeTextfile(path, GetRegistry())
}

func writeTextfile(path string, gatherer prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
