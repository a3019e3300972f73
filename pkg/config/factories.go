package config

import (
	"context"
	"fmt"

	"github.com/marmos91/catalogadmin/internal/logger"
	"github.com/marmos91/catalogadmin/internal/ratelimiter"
	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/catalog/memory"
	catalogsql "github.com/marmos91/catalogadmin/pkg/catalog/sql"
	"github.com/marmos91/catalogadmin/pkg/datastore"
	"github.com/marmos91/catalogadmin/pkg/datastore/artifact"
	artifactfs "github.com/marmos91/catalogadmin/pkg/datastore/artifact/fs"
	artifactmemory "github.com/marmos91/catalogadmin/pkg/datastore/artifact/memory"
	artifacts3 "github.com/marmos91/catalogadmin/pkg/datastore/artifact/s3"
	"github.com/marmos91/catalogadmin/pkg/datastore/file"
	recordsbadger "github.com/marmos91/catalogadmin/pkg/datastore/records/badger"
	recordsmemory "github.com/marmos91/catalogadmin/pkg/datastore/records/memory"
	"github.com/marmos91/catalogadmin/pkg/storageclass"
	"github.com/mitchellh/mapstructure"
)

// CreateRegistry creates the dataset registry selected by cfg.Registry.
//
// Supported types:
//   - "sqlite": pkg/catalog/sql on modernc.org/sqlite (path relative to the repository)
//   - "postgres": pkg/catalog/sql on lib/pq
//   - "mysql": pkg/catalog/sql on go-sql-driver/mysql
//   - "memory": pkg/catalog/memory (ephemeral)
//
// Parameters:
//   - ctx: Context for connection setup
//   - cfg: Complete configuration (for path resolution)
//
// Returns:
//   - catalog.WritableRegistry: Open registry
//   - error: Configuration or connection error
func CreateRegistry(ctx context.Context, cfg *Config) (catalog.WritableRegistry, error) {
	switch cfg.Registry.Type {
	case "memory":
		return memory.NewMemoryRegistry(), nil
	case "sqlite":
		return createSQLiteRegistry(ctx, cfg, cfg.Registry.SQLite)
	case "postgres":
		return createNetworkRegistry(ctx, "postgres", cfg.Registry.Postgres)
	case "mysql":
		return createNetworkRegistry(ctx, "mysql", cfg.Registry.MySQL)
	default:
		return nil, fmt.Errorf("unknown registry type: %q (supported: sqlite, postgres, mysql, memory)", cfg.Registry.Type)
	}
}

func createSQLiteRegistry(ctx context.Context, cfg *Config, options map[string]any) (catalog.WritableRegistry, error) {
	type SQLiteRegistryConfig struct {
		Path string `mapstructure:"path"`
	}

	var regCfg SQLiteRegistryConfig
	if err := mapstructure.Decode(options, &regCfg); err != nil {
		return nil, fmt.Errorf("failed to decode sqlite registry config: %w", err)
	}
	if regCfg.Path == "" {
		return nil, fmt.Errorf("sqlite registry: path is required")
	}

	path := cfg.resolve(regCfg.Path)
	reg, err := catalogsql.Open(ctx, catalogsql.Config{Dialect: "sqlite", DSN: path})
	if err != nil {
		return nil, err
	}
	logger.Debug("SQLite registry opened: %s", path)
	return reg, nil
}

func createNetworkRegistry(ctx context.Context, dialect string, options map[string]any) (catalog.WritableRegistry, error) {
	type NetworkRegistryConfig struct {
		DSN          string `mapstructure:"dsn"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
	}

	var regCfg NetworkRegistryConfig
	if err := mapstructure.Decode(options, &regCfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s registry config: %w", dialect, err)
	}
	if regCfg.DSN == "" {
		return nil, fmt.Errorf("%s registry: dsn is required", dialect)
	}

	reg, err := catalogsql.Open(ctx, catalogsql.Config{
		Dialect:      dialect,
		DSN:          regCfg.DSN,
		MaxOpenConns: regCfg.MaxOpenConns,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("%s registry connected", dialect)
	return reg, nil
}

// CreateRecordStore creates the record store selected by cfg.Datastore.Records.
//
// Supported types:
//   - "badger": pkg/datastore/records/badger (persistent)
//   - "memory": pkg/datastore/records/memory (ephemeral)
func CreateRecordStore(ctx context.Context, cfg *Config) (datastore.RecordStore, error) {
	switch cfg.Datastore.Records.Type {
	case "memory":
		return recordsmemory.NewMemoryRecordStore(), nil
	case "badger":
		return createBadgerRecordStore(ctx, cfg, cfg.Datastore.Records.Badger)
	default:
		return nil, fmt.Errorf("unknown record store type: %q (supported: badger, memory)", cfg.Datastore.Records.Type)
	}
}

// createBadgerRecordStore creates a BadgerDB-based persistent record store.
func createBadgerRecordStore(ctx context.Context, cfg *Config, options map[string]any) (datastore.RecordStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type BadgerRecordStoreOptions struct {
		DBPath           string `mapstructure:"db_path"`
		BlockCacheSizeMB int64  `mapstructure:"block_cache_mb"`
		IndexCacheSizeMB int64  `mapstructure:"index_cache_mb"`
	}

	var storeOpts BadgerRecordStoreOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &storeOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger record store options: %w", err)
	}

	if storeOpts.DBPath == "" {
		return nil, fmt.Errorf("badger record store: db_path is required")
	}

	store, err := recordsbadger.NewBadgerRecordStore(ctx, recordsbadger.BadgerRecordStoreConfig{
		DBPath:           cfg.resolve(storeOpts.DBPath),
		BlockCacheSizeMB: storeOpts.BlockCacheSizeMB,
		IndexCacheSizeMB: storeOpts.IndexCacheSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger record store: %w", err)
	}
	return store, nil
}

// CreateArtifactStore creates the artifact store selected by
// cfg.Datastore.Artifacts.
//
// Supported types:
//   - "filesystem": pkg/datastore/artifact/fs (path relative to the repository)
//   - "memory": pkg/datastore/artifact/memory (ephemeral)
//   - "s3": pkg/datastore/artifact/s3 (Amazon S3 or compatible storage)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Complete configuration
//   - s3Metrics: Observer for S3 calls (nil disables collection)
func CreateArtifactStore(ctx context.Context, cfg *Config, s3Metrics artifacts3.S3Metrics) (artifact.Store, error) {
	switch cfg.Datastore.Artifacts.Type {
	case "filesystem":
		return createFilesystemArtifactStore(ctx, cfg, cfg.Datastore.Artifacts.Filesystem)
	case "memory":
		return artifactmemory.NewMemoryArtifactStore(cfg.Datastore.Name), nil
	case "s3":
		return createS3ArtifactStore(ctx, cfg.Datastore.Artifacts.S3, s3Metrics)
	default:
		return nil, fmt.Errorf("unknown artifact store type: %q (supported: filesystem, memory, s3)", cfg.Datastore.Artifacts.Type)
	}
}

// createFilesystemArtifactStore creates a filesystem-based artifact store.
func createFilesystemArtifactStore(ctx context.Context, cfg *Config, options map[string]any) (artifact.Store, error) {
	type FilesystemArtifactStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemArtifactStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem artifact store config: %w", err)
	}
	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem artifact store: path is required")
	}

	store, err := artifactfs.NewFSArtifactStore(ctx, cfg.resolve(storeCfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem artifact store: %w", err)
	}
	return store, nil
}

// createS3ArtifactStore creates an S3-based artifact store.
func createS3ArtifactStore(ctx context.Context, options map[string]any, s3Metrics artifacts3.S3Metrics) (artifact.Store, error) {
	type S3ArtifactStoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3ArtifactStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 artifact store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 artifact store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 artifact store: region is required")
	}

	// ========================================================================
	// Step 1: Create S3 Client
	// ========================================================================

	client, err := artifacts3.NewClient(ctx, artifacts3.ClientConfig{
		Region:          storeCfg.Region,
		Endpoint:        storeCfg.Endpoint,
		AccessKeyID:     storeCfg.AccessKeyID,
		SecretAccessKey: storeCfg.SecretAccessKey,
		MaxRetries:      storeCfg.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Create S3 Artifact Store
	// ========================================================================

	store, err := artifacts3.NewS3ArtifactStore(ctx, artifacts3.S3ArtifactStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		Metrics:   s3Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 artifact store: %w", err)
	}

	logger.Info("S3 artifact store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateDatastore assembles the file datastore from its record store,
// artifact store and read limiter.
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Complete configuration
//   - m: Metrics for the datastore and its S3 client (nil disables collection)
//
// Returns:
//   - *file.FileDatastore: Datastore owning both stores
//   - error: Configuration or initialization error
func CreateDatastore(ctx context.Context, cfg *Config, m *MetricsResult) (*file.FileDatastore, error) {
	if m == nil {
		m = &MetricsResult{}
	}

	records, err := CreateRecordStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	artifacts, err := CreateArtifactStore(ctx, cfg, m.S3)
	if err != nil {
		_ = records.Close()
		return nil, err
	}

	var limiter *ratelimiter.RateLimiter
	if cfg.Checksums.ReadsPerSecond > 0 {
		limiter = ratelimiter.New(cfg.Checksums.ReadsPerSecond, cfg.Checksums.ReadBurst)
	}

	ds, err := file.New(file.Config{
		Name:           cfg.Datastore.Name,
		Records:        records,
		Artifacts:      artifacts,
		Limiter:        limiter,
		TrashBatchSize: cfg.Datastore.TrashBatchSize,
		Metrics:        m.Checksums,
	})
	if err != nil {
		_ = records.Close()
		_ = artifacts.Close()
		return nil, err
	}
	return ds, nil
}

// CreateStorageClasses builds the storage class catalog: the built-in
// classes followed by every configured definition file, in order.
func CreateStorageClasses(cfg *Config) (*storageclass.Factory, error) {
	classes, err := storageclass.NewDefaultFactory()
	if err != nil {
		return nil, err
	}
	for _, path := range cfg.StorageClasses.Files {
		if err := classes.LoadFile(cfg.resolve(path)); err != nil {
			return nil, err
		}
	}
	return classes, nil
}
