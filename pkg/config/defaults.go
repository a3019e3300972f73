package config

import (
	"strings"

	"github.com/marmos91/catalogadmin/pkg/datastore"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are only set for the selected type
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyRegistryDefaults(&cfg.Registry)
	applyDatastoreDefaults(&cfg.Datastore)
	applyChecksumDefaults(&cfg.Checksums)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyRegistryDefaults sets registry defaults.
func applyRegistryDefaults(cfg *RegistryConfig) {
	if cfg.Type == "" {
		cfg.Type = "sqlite"
	}
	if cfg.Type == "sqlite" {
		if cfg.SQLite == nil {
			cfg.SQLite = make(map[string]any)
		}
		if _, ok := cfg.SQLite["path"]; !ok {
			cfg.SQLite["path"] = "registry.sqlite3"
		}
	}
}

// applyDatastoreDefaults sets datastore defaults.
func applyDatastoreDefaults(cfg *DatastoreConfig) {
	if cfg.Name == "" {
		cfg.Name = "FileDatastore"
	}
	if cfg.TrashBatchSize == 0 {
		cfg.TrashBatchSize = 1000
	}

	if cfg.Records.Type == "" {
		cfg.Records.Type = "badger"
	}
	if cfg.Records.Type == "badger" {
		if cfg.Records.Badger == nil {
			cfg.Records.Badger = make(map[string]any)
		}
		if _, ok := cfg.Records.Badger["db_path"]; !ok {
			cfg.Records.Badger["db_path"] = "records"
		}
	}

	if cfg.Artifacts.Type == "" {
		cfg.Artifacts.Type = "filesystem"
	}
	if cfg.Artifacts.Type == "filesystem" {
		if cfg.Artifacts.Filesystem == nil {
			cfg.Artifacts.Filesystem = make(map[string]any)
		}
		if _, ok := cfg.Artifacts.Filesystem["path"]; !ok {
			cfg.Artifacts.Filesystem["path"] = "artifacts"
		}
	}
}

// applyChecksumDefaults sets checksum backfill defaults.
func applyChecksumDefaults(cfg *ChecksumsConfig) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = datastore.DefaultChecksumAlgorithm
	}
	cfg.Algorithm = strings.ToLower(cfg.Algorithm)
	// Workers defaults to 0 (one per CPU)
	// ReadsPerSecond defaults to 0 (unlimited)
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating new repository configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
