package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/catalog/memory"
	artifactfs "github.com/marmos91/catalogadmin/pkg/datastore/artifact/fs"
	artifactmemory "github.com/marmos91/catalogadmin/pkg/datastore/artifact/memory"
)

func TestCreateRegistry_Memory(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Registry.Type = "memory"

	reg, err := CreateRegistry(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create memory registry: %v", err)
	}
	defer func() { _ = reg.Close() }()

	if _, ok := reg.(*memory.MemoryRegistry); !ok {
		t.Errorf("Expected *memory.MemoryRegistry, got %T", reg)
	}
}

func TestCreateRegistry_SQLiteRelativePath(t *testing.T) {
	ctx := context.Background()
	cfg := GetDefaultConfig()
	cfg.Root = t.TempDir()

	reg, err := CreateRegistry(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create sqlite registry: %v", err)
	}
	defer func() { _ = reg.Close() }()

	if err := reg.RegisterCollection(ctx, catalog.Collection{Name: "run/1", Type: catalog.CollectionRun}); err != nil {
		t.Fatalf("Failed to register collection: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Root, "registry.sqlite3")); err != nil {
		t.Errorf("Expected database inside the repository: %v", err)
	}
}

func TestCreateRegistry_MissingDSN(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Registry.Type = "postgres"

	_, err := CreateRegistry(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "dsn is required") {
		t.Errorf("Expected 'dsn is required' error, got: %v", err)
	}
}

func TestCreateRegistry_UnknownType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Registry.Type = "oracle"

	_, err := CreateRegistry(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "unknown registry type") {
		t.Errorf("Expected unknown type error, got: %v", err)
	}
}

func TestCreateArtifactStore_Filesystem(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Root = t.TempDir()

	store, err := CreateArtifactStore(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create filesystem artifact store: %v", err)
	}
	defer func() { _ = store.Close() }()

	fsStore, ok := store.(*artifactfs.FSArtifactStore)
	if !ok {
		t.Fatalf("Expected *fs.FSArtifactStore, got %T", store)
	}
	if want := filepath.Join(cfg.Root, "artifacts"); fsStore.BasePath() != want {
		t.Errorf("Expected base path %q, got %q", want, fsStore.BasePath())
	}
}

func TestCreateArtifactStore_FilesystemMissingPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Datastore.Artifacts.Filesystem = map[string]any{}

	_, err := CreateArtifactStore(context.Background(), cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateArtifactStore_Memory(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Datastore.Artifacts.Type = "memory"

	store, err := CreateArtifactStore(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create memory artifact store: %v", err)
	}
	if _, ok := store.(*artifactmemory.MemoryArtifactStore); !ok {
		t.Errorf("Expected *memory.MemoryArtifactStore, got %T", store)
	}
}

func TestCreateArtifactStore_S3Validation(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Datastore.Artifacts.Type = "s3"

	cfg.Datastore.Artifacts.S3 = map[string]any{"region": "us-east-1"}
	_, err := CreateArtifactStore(context.Background(), cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}

	cfg.Datastore.Artifacts.S3 = map[string]any{"bucket": "b"}
	_, err = CreateArtifactStore(context.Background(), cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "region is required") {
		t.Errorf("Expected 'region is required' error, got: %v", err)
	}
}

func TestCreateDatastore_OnDisk(t *testing.T) {
	ctx := context.Background()
	cfg := GetDefaultConfig()
	cfg.Root = t.TempDir()
	cfg.Checksums.ReadsPerSecond = 100

	ds, err := CreateDatastore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create datastore: %v", err)
	}
	defer func() { _ = ds.Close() }()

	ref := catalog.DatasetRef{ID: catalog.NewDatasetID(), DatasetType: "calexp", Run: "run/1"}
	if _, err := ds.Put(ctx, ref, "ExposureF", bytes.NewReader([]byte("pixels"))); err != nil {
		t.Fatalf("Failed to put dataset: %v", err)
	}

	uris, err := ds.GetManyURIs(ctx, []catalog.DatasetRef{ref})
	if err != nil {
		t.Fatalf("Failed to resolve URIs: %v", err)
	}
	if !strings.HasPrefix(uris[ref.ID].Primary, "file://") {
		t.Errorf("Expected file URI, got %q", uris[ref.ID].Primary)
	}
	if _, err := os.Stat(filepath.Join(cfg.Root, "records")); err != nil {
		t.Errorf("Expected badger directory inside the repository: %v", err)
	}
}

func TestCreateStorageClasses(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "plugins.yaml"), []byte(`
bindings:
  - plugin.Catalog
storage_classes:
  SourceCatalog:
    binding: plugin.Catalog
`), 0644); err != nil {
		t.Fatalf("Failed to write definitions: %v", err)
	}

	cfg := GetDefaultConfig()
	cfg.Root = tmpDir
	cfg.StorageClasses.Files = []string{"plugins.yaml"}

	classes, err := CreateStorageClasses(cfg)
	if err != nil {
		t.Fatalf("Failed to create storage classes: %v", err)
	}
	if !classes.Exists("SourceCatalog") || !classes.Exists("StructuredDataDict") {
		t.Errorf("Expected built-in and file classes, got %v", classes.Names())
	}

	cfg.StorageClasses.Files = []string{"missing.yaml"}
	if _, err := CreateStorageClasses(cfg); err == nil {
		t.Error("Expected error for missing definition file")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	m := InitializeMetrics(GetDefaultConfig())
	if m.Admin != nil || m.S3 != nil || m.Checksums != nil {
		t.Errorf("Expected no metrics when disabled, got %+v", m)
	}
	if err := m.Flush(); err != nil {
		t.Errorf("Flush should be a no-op when disabled: %v", err)
	}
}
