package catalog

import (
	"context"
)

// DatasetQuery selects dataset references.
type DatasetQuery struct {
	// DatasetType is a dataset type name or glob pattern.
	DatasetType string

	// Collections is the ordered collection search path. CHAINED entries are
	// flattened into their children. Empty means every collection.
	Collections []string

	// Where is an optional CEL expression over data_id, run and dataset_type.
	Where string

	// FindFirst keeps, for each (dataset type, data ID), only the dataset
	// from the first collection in the search path that contains one.
	// Requires a non-empty Collections.
	FindFirst bool

	// Limit caps the number of results. Zero means unlimited. Registries
	// reject negative values; soft caps are handled by callers.
	Limit int
}

// Registry is the read side of the dataset catalog plus the two maintenance
// primitives (summary refresh and bulk storage class update).
//
// Implementations must be safe for concurrent use. Results of enumeration
// methods are sorted so callers can rely on stable output.
type Registry interface {
	// QueryDatasetTypes returns dataset types whose names match any of the
	// given patterns, sorted by name. No patterns, or the pattern "...",
	// match everything.
	QueryDatasetTypes(ctx context.Context, patterns ...string) ([]DatasetType, error)

	// GetDatasetType returns a single dataset type.
	//
	// Returns:
	//   - error: StoreError with ErrNotFound when the name is unknown
	GetDatasetType(ctx context.Context, name string) (DatasetType, error)

	// QueryDatasets returns references matching q.
	QueryDatasets(ctx context.Context, q DatasetQuery) ([]DatasetRef, error)

	// QueryCollections returns collections of the given types sorted by name.
	// An empty types slice means all types. When includeChains is true the
	// children of matching CHAINED collections are included as well.
	QueryCollections(ctx context.Context, types []CollectionType, includeChains bool) ([]Collection, error)

	// GetCollection returns a collection record by name.
	GetCollection(ctx context.Context, name string) (Collection, error)

	// GetCollectionSummary returns the cached summary for a collection. For a
	// CHAINED collection this is the union of its children's summaries.
	GetCollectionSummary(ctx context.Context, name string) (CollectionSummary, error)

	// RefreshCollectionSummaries recomputes every cached summary from the
	// actual dataset membership.
	RefreshCollectionSummaries(ctx context.Context) error

	// UpdateDatasetTypeStorageClass rebinds every named dataset type that is
	// still bound to from so it uses to, in one atomic write, and returns the
	// number of rows changed. Named types bound to another class are left
	// alone. Either every row is updated or none is.
	UpdateDatasetTypeStorageClass(ctx context.Context, names []string, from, to string) (int, error)

	// Close releases resources held by the registry.
	Close() error
}

// WritableRegistry adds the ingest primitives used to seed and evolve a
// repository. Maintenance operations never depend on it.
type WritableRegistry interface {
	Registry

	// RegisterDatasetType adds a dataset type. Registering an identical
	// definition twice is a no-op; a conflicting one returns ErrConflict.
	RegisterDatasetType(ctx context.Context, dt DatasetType) error

	// RegisterCollection adds a collection. Re-registering the same name with
	// the same type is a no-op.
	RegisterCollection(ctx context.Context, c Collection) error

	// SetCollectionChain replaces the children of a CHAINED collection.
	SetCollectionChain(ctx context.Context, parent string, children []string) error

	// InsertDatasets adds datasets owned by their Run collection and adds the
	// dataset type to that run's summary.
	InsertDatasets(ctx context.Context, refs []DatasetRef) error

	// Associate adds existing datasets to a TAGGED or CALIBRATION collection
	// and updates its summary.
	Associate(ctx context.Context, collection string, refs []DatasetRef) error

	// RemoveDatasets deletes datasets from the registry. Summaries are left
	// untouched.
	RemoveDatasets(ctx context.Context, refs []DatasetRef) error
}

// SummaryWriter is implemented by registries that let tools overwrite a
// cached summary directly. It exists to reproduce drift in tests and for
// bulk imports that populate membership outside the normal insert path.
type SummaryWriter interface {
	SetCollectionSummary(ctx context.Context, name string, summary CollectionSummary) error
}
