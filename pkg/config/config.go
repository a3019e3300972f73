package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the name of the configuration file inside a repository
// directory.
const FileName = "catalog-admin.yaml"

// EnvPrefix prefixes environment variable overrides.
// Example: CATALOG_ADMIN_LOGGING_LEVEL=DEBUG
const EnvPrefix = "CATALOG_ADMIN"

// Config represents the complete configuration of a catalog repository.
//
// This structure captures all configurable aspects of a repository:
//   - Logging configuration
//   - Registry backend selection and configuration (backend-specific)
//   - Datastore record and artifact store selection
//   - Additional storage class definitions
//   - Checksum backfill tuning
//   - Metrics export
//
// Configuration sources (in order of precedence):
//  1. Environment variables (CATALOG_ADMIN_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each backend defines its own option map (e.g. registry.sqlite,
// datastore.artifacts.s3) and only the section matching the selected type is
// decoded by the factories.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Registry selects the dataset registry backend
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`

	// Datastore selects the record and artifact stores
	Datastore DatastoreConfig `mapstructure:"datastore" yaml:"datastore"`

	// StorageClasses extends the built-in storage class definitions
	StorageClasses StorageClassesConfig `mapstructure:"storage_classes" yaml:"storage_classes"`

	// Checksums tunes checksum backfill
	Checksums ChecksumsConfig `mapstructure:"checksums" yaml:"checksums"`

	// Metrics controls metrics collection and export
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Root is the repository directory. Relative paths in backend options
	// are resolved against it. Set by Load; never read from the file.
	Root string `mapstructure:"-" yaml:"-" json:"-"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// RegistryConfig specifies the dataset registry backend.
//
// The Type field determines which implementation is used.
// Only the corresponding type-specific configuration section is used.
type RegistryConfig struct {
	// Type specifies which registry implementation to use
	// Valid values: sqlite, postgres, mysql, memory
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=sqlite postgres mysql memory"`

	// SQLite contains SQLite-specific configuration (path)
	SQLite map[string]any `mapstructure:"sqlite" yaml:"sqlite,omitempty"`

	// Postgres contains PostgreSQL-specific configuration (dsn, max_open_conns)
	Postgres map[string]any `mapstructure:"postgres" yaml:"postgres,omitempty"`

	// MySQL contains MySQL-specific configuration (dsn, max_open_conns)
	MySQL map[string]any `mapstructure:"mysql" yaml:"mysql,omitempty"`
}

// DatastoreConfig specifies the file datastore.
type DatastoreConfig struct {
	// Name identifies the datastore in logs
	Name string `mapstructure:"name" yaml:"name"`

	// Records selects where stored file records and the trash ledger live
	Records RecordsConfig `mapstructure:"records" yaml:"records"`

	// Artifacts selects where artifact bytes live
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`

	// TrashBatchSize is the number of artifacts deleted per batch
	TrashBatchSize int `mapstructure:"trash_batch_size" yaml:"trash_batch_size" validate:"gte=0,lte=10000"`
}

// RecordsConfig specifies the record store.
type RecordsConfig struct {
	// Type specifies which record store implementation to use
	// Valid values: badger, memory
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=badger memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`
}

// ArtifactsConfig specifies the artifact store.
type ArtifactsConfig struct {
	// Type specifies which artifact store implementation to use
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`
}

// StorageClassesConfig extends the storage class catalog.
type StorageClassesConfig struct {
	// Files are YAML definition files loaded after the built-in classes.
	// Later files replace classes of the same name.
	Files []string `mapstructure:"files" yaml:"files,omitempty"`
}

// ChecksumsConfig tunes checksum backfill.
type ChecksumsConfig struct {
	// Workers is the number of concurrent digests (0 = one per CPU)
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0"`

	// Algorithm is the digest algorithm
	// Valid values: md5, sha256
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm" validate:"required,oneof=md5 sha256"`

	// ReadsPerSecond throttles artifact reads (0 = unlimited)
	ReadsPerSecond uint `mapstructure:"reads_per_second" yaml:"reads_per_second"`

	// ReadBurst is the number of reads allowed at once (0 = ReadsPerSecond)
	ReadBurst uint `mapstructure:"read_burst" yaml:"read_burst"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled turns on Prometheus metrics collection
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Textfile is where metrics are written after each command, in the
	// node exporter textfile format. Required when Enabled is true.
	Textfile string `mapstructure:"textfile" yaml:"textfile,omitempty" validate:"required_if=Enabled true"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CATALOG_ADMIN_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - location: Repository directory or explicit path to a config file. A
//     directory is searched for catalog-admin.yaml.
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(location string) (*Config, error) {
	configPath, root, err := ResolvePath(location)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Root = root

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ResolvePath maps a repository location to its config file and root
// directory. A missing location means the current directory.
func ResolvePath(location string) (configPath, root string, err error) {
	if location == "" {
		location = "."
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid repository location %q: %w", location, err)
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(abs, FileName), abs, nil
	case err == nil:
		return abs, filepath.Dir(abs), nil
	case errors.Is(err, os.ErrNotExist):
		return "", "", fmt.Errorf("repository location %s does not exist", abs)
	default:
		return "", "", fmt.Errorf("failed to stat repository location: %w", err)
	}
}

// setupViper configures viper with environment variables and the config file.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// AutomaticEnv only overrides keys viper already knows about.
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"registry.type",
		"datastore.records.type", "datastore.artifacts.type",
		"checksums.workers", "checksums.algorithm", "checksums.reads_per_second",
		"metrics.enabled", "metrics.textfile",
	} {
		_ = v.BindEnv(key)
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// resolve makes p absolute relative to the repository root.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}
