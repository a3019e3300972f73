package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/marmos91/catalogadmin/pkg/catalog"
)

// collectionData holds the internal representation of a collection.
type collectionData struct {
	Collection catalog.Collection

	// children is the ordered search path of a CHAINED collection.
	children []string

	// members holds the IDs of datasets in a non-chained collection.
	members map[catalog.DatasetID]struct{}

	// summary is the cached set of dataset type names.
	summary map[string]struct{}
}

// MemoryRegistry implements catalog.WritableRegistry using in-memory maps.
//
// It is suitable for tests and for throwaway repositories. Nothing is
// persisted; Close only marks the registry as unusable.
//
// Thread Safety:
// All operations are protected by a single read-write mutex, making the
// registry safe for concurrent access from multiple goroutines.
//
// Storage Model:
//   - datasetTypes: dataset type name to definition
//   - collections: collection name to type, chain, members and summary
//   - datasets: dataset ID to reference
//
// Summaries are maintained by InsertDatasets and Associate the same way a
// database-backed registry maintains them, and can be overwritten through
// SetCollectionSummary to reproduce drift.
type MemoryRegistry struct {
	mu sync.RWMutex

	datasetTypes map[string]catalog.DatasetType
	collections  map[string]*collectionData
	datasets     map[catalog.DatasetID]catalog.DatasetRef

	closed bool
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		datasetTypes: make(map[string]catalog.DatasetType),
		collections:  make(map[string]*collectionData),
		datasets:     make(map[catalog.DatasetID]catalog.DatasetRef),
	}
}

var (
	_ catalog.WritableRegistry = (*MemoryRegistry)(nil)
	_ catalog.SummaryWriter    = (*MemoryRegistry)(nil)
)

func (r *MemoryRegistry) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.closed {
		return &catalog.StoreError{Code: catalog.ErrNotSupported, Message: "registry is closed"}
	}
	return nil
}

// QueryDatasetTypes returns dataset types matching any pattern, sorted by name.
func (r *MemoryRegistry) QueryDatasetTypes(ctx context.Context, patterns ...string) ([]catalog.DatasetType, error) {
	matcher, err := catalog.NewNameMatcher(patterns...)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.check(ctx); err != nil {
		return nil, err
	}

	var result []catalog.DatasetType
	for name, dt := range r.datasetTypes {
		if matcher.Match(name) {
			result = append(result, copyDatasetType(dt))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// GetDatasetType returns a dataset type by name.
func (r *MemoryRegistry) GetDatasetType(ctx context.Context, name string) (catalog.DatasetType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.check(ctx); err != nil {
		return catalog.DatasetType{}, err
	}

	dt, ok := r.datasetTypes[name]
	if !ok {
		return catalog.DatasetType{}, catalog.NotFound("dataset type", name)
	}
	return copyDatasetType(dt), nil
}

// QueryDatasets returns references matching q.
//
// The dataset type pattern is applied per collection of the flattened search
// path; where, find-first and limit are resolved by catalog.SelectDatasets.
func (r *MemoryRegistry) QueryDatasets(ctx context.Context, q catalog.DatasetQuery) ([]catalog.DatasetRef, error) {
	if err := catalog.ValidateQuery(q); err != nil {
		return nil, err
	}
	matcher, err := catalog.NewNameMatcher(q.DatasetType)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.check(ctx); err != nil {
		return nil, err
	}

	var byCollection [][]catalog.DatasetRef

	if len(q.Collections) == 0 {
		// No search path: every dataset, each once.
		var refs []catalog.DatasetRef
		for _, ref := range r.datasets {
			if matcher.Match(ref.DatasetType) {
				refs = append(refs, copyRef(ref))
			}
		}
		byCollection = append(byCollection, refs)
	} else {
		path, err := catalog.FlattenSearchPath(ctx, q.Collections, r.chainLookupLocked)
		if err != nil {
			return nil, err
		}
		for _, name := range path {
			coll := r.collections[name]
			var refs []catalog.DatasetRef
			for id := range coll.members {
				ref, ok := r.datasets[id]
				if ok && matcher.Match(ref.DatasetType) {
					refs = append(refs, copyRef(ref))
				}
			}
			byCollection = append(byCollection, refs)
		}
	}

	return catalog.SelectDatasets(q, byCollection)
}

// chainLookupLocked resolves a collection for FlattenSearchPath.
// Caller must hold r.mu.
func (r *MemoryRegistry) chainLookupLocked(_ context.Context, name string) (catalog.CollectionType, []string, error) {
	coll, ok := r.collections[name]
	if !ok {
		return 0, nil, catalog.NotFound("collection", name)
	}
	return coll.Collection.Type, coll.children, nil
}

// QueryCollections returns collections of the given types sorted by name.
func (r *MemoryRegistry) QueryCollections(ctx context.Context, types []catalog.CollectionType, includeChains bool) ([]catalog.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.check(ctx); err != nil {
		return nil, err
	}

	wanted := collectionTypeSet(types)
	selected := make(map[string]catalog.Collection)

	for name, coll := range r.collections {
		if _, ok := wanted[coll.Collection.Type]; !ok {
			continue
		}
		selected[name] = coll.Collection

		if includeChains && coll.Collection.Type == catalog.CollectionChained {
			children, err := catalog.FlattenSearchPath(ctx, coll.children, r.chainLookupLocked)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				selected[child] = r.collections[child].Collection
			}
		}
	}

	return sortedCollections(selected), nil
}

// GetCollection returns a collection record by name.
func (r *MemoryRegistry) GetCollection(ctx context.Context, name string) (catalog.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.check(ctx); err != nil {
		return catalog.Collection{}, err
	}

	coll, ok := r.collections[name]
	if !ok {
		return catalog.Collection{}, catalog.NotFound("collection", name)
	}
	return coll.Collection, nil
}

// GetCollectionSummary returns the cached summary of a collection.
func (r *MemoryRegistry) GetCollectionSummary(ctx context.Context, name string) (catalog.CollectionSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.check(ctx); err != nil {
		return catalog.CollectionSummary{}, err
	}

	path, err := catalog.FlattenSearchPath(ctx, []string{name}, r.chainLookupLocked)
	if err != nil {
		return catalog.CollectionSummary{}, err
	}

	summary := catalog.NewCollectionSummary()
	for _, member := range path {
		for dt := range r.collections[member].summary {
			summary.DatasetTypes[dt] = struct{}{}
		}
	}
	return summary, nil
}

// SetCollectionSummary overwrites the cached summary of a non-chained collection.
func (r *MemoryRegistry) SetCollectionSummary(ctx context.Context, name string, summary catalog.CollectionSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.check(ctx); err != nil {
		return err
	}

	coll, ok := r.collections[name]
	if !ok {
		return catalog.NotFound("collection", name)
	}
	if coll.Collection.Type == catalog.CollectionChained {
		return &catalog.StoreError{
			Code:    catalog.ErrInvalidArgument,
			Message: "chained collections have no summary of their own",
			Name:    name,
		}
	}

	coll.summary = make(map[string]struct{}, len(summary.DatasetTypes))
	for dt := range summary.DatasetTypes {
		coll.summary[dt] = struct{}{}
	}
	return nil
}

// RefreshCollectionSummaries recomputes every summary from membership.
func (r *MemoryRegistry) RefreshCollectionSummaries(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.check(ctx); err != nil {
		return err
	}

	for _, coll := range r.collections {
		if coll.Collection.Type == catalog.CollectionChained {
			continue
		}
		summary := make(map[string]struct{})
		for id := range coll.members {
			if ref, ok := r.datasets[id]; ok {
				summary[ref.DatasetType] = struct{}{}
			}
		}
		coll.summary = summary
	}
	return nil
}

// UpdateDatasetTypeStorageClass rebinds the named dataset types bound to
// from so they use to. Names that are not registered or bound to another
// class are ignored and not counted.
func (r *MemoryRegistry) UpdateDatasetTypeStorageClass(ctx context.Context, names []string, from, to string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.check(ctx); err != nil {
		return 0, err
	}

	count := 0
	for _, name := range uniqueStrings(names) {
		dt, ok := r.datasetTypes[name]
		if !ok || dt.StorageClass != from {
			continue
		}
		dt.StorageClass = to
		r.datasetTypes[name] = dt
		count++
	}
	return count, nil
}

// Close marks the registry closed.
func (r *MemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
