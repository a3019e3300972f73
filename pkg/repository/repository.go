// Package repository opens a catalog repository: its dataset registry, its
// datastore and its storage class catalog, as described by the repository's
// configuration file.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/catalogadmin/internal/logger"
	"github.com/marmos91/catalogadmin/pkg/admin"
	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/config"
	"github.com/marmos91/catalogadmin/pkg/datastore"
	"github.com/marmos91/catalogadmin/pkg/storageclass"
)

// Repository is an open repository session.
//
// Thread Safety:
// Safe for concurrent use once opened; Close must not race with other calls.
type Repository struct {
	registry catalog.WritableRegistry
	ds       datastore.Datastore
	classes  *storageclass.Factory
}

var _ admin.Repository = (*Repository)(nil)

// New wraps already-open components. The repository takes ownership of the
// registry and datastore; Close closes both.
func New(reg catalog.WritableRegistry, ds datastore.Datastore, classes *storageclass.Factory) (*Repository, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if ds == nil {
		return nil, fmt.Errorf("datastore is required")
	}
	if classes == nil {
		var err error
		if classes, err = storageclass.NewDefaultFactory(); err != nil {
			return nil, err
		}
	}
	return &Repository{registry: reg, ds: ds, classes: classes}, nil
}

// Open builds a repository from a loaded configuration.
//
// Components are created in order (storage classes, registry, datastore);
// anything already opened is closed again if a later step fails.
func Open(ctx context.Context, cfg *config.Config, m *config.MetricsResult) (*Repository, error) {
	classes, err := config.CreateStorageClasses(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage classes: %w", err)
	}

	reg, err := config.CreateRegistry(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	ds, err := config.CreateDatastore(ctx, cfg, m)
	if err != nil {
		_ = reg.Close()
		return nil, fmt.Errorf("failed to open datastore: %w", err)
	}

	logger.Debug("Repository opened: root=%s registry=%s records=%s artifacts=%s",
		cfg.Root, cfg.Registry.Type, cfg.Datastore.Records.Type, cfg.Datastore.Artifacts.Type)

	return &Repository{registry: reg, ds: ds, classes: classes}, nil
}

// OpenLocation loads the configuration at location and opens the repository.
func OpenLocation(ctx context.Context, location string) (*Repository, error) {
	cfg, err := config.Load(location)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg, nil)
}

// Registry implements admin.Repository.
func (r *Repository) Registry() catalog.Registry {
	return r.registry
}

// WritableRegistry returns the registry with its ingest methods.
func (r *Repository) WritableRegistry() catalog.WritableRegistry {
	return r.registry
}

// Datastore implements admin.Repository.
func (r *Repository) Datastore() datastore.Datastore {
	return r.ds
}

// StorageClasses implements admin.Repository.
func (r *Repository) StorageClasses() admin.SchemaCatalog {
	return r.classes
}

// Close closes the datastore and the registry, returning every error.
func (r *Repository) Close() error {
	return errors.Join(r.ds.Close(), r.registry.Close())
}
