package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/marmos91/catalogadmin/pkg/catalog"
)

// RegisterDatasetType adds a dataset type definition.
//
// Returns:
//   - error: ErrConflict if the name is registered with a different storage
//     class or dimensions, ErrInvalidArgument for an empty name or class
func (r *MemoryRegistry) RegisterDatasetType(ctx context.Context, dt catalog.DatasetType) error {
	if dt.Name == "" || dt.StorageClass == "" {
		return &catalog.StoreError{
			Code:    catalog.ErrInvalidArgument,
			Message: "dataset type requires a name and a storage class",
			Name:    dt.Name,
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.check(ctx); err != nil {
		return err
	}

	if existing, ok := r.datasetTypes[dt.Name]; ok {
		if existing.StorageClass == dt.StorageClass && slices.Equal(existing.Dimensions, dt.Dimensions) {
			return nil
		}
		return &catalog.StoreError{
			Code:    catalog.ErrConflict,
			Message: "dataset type already registered with a different definition",
			Name:    dt.Name,
		}
	}

	r.datasetTypes[dt.Name] = copyDatasetType(dt)
	return nil
}

// RegisterCollection adds a collection.
func (r *MemoryRegistry) RegisterCollection(ctx context.Context, c catalog.Collection) error {
	if c.Name == "" {
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "collection name is empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.check(ctx); err != nil {
		return err
	}

	if existing, ok := r.collections[c.Name]; ok {
		if existing.Collection.Type == c.Type {
			return nil
		}
		return &catalog.StoreError{
			Code:    catalog.ErrConflict,
			Message: "collection already registered with type " + existing.Collection.Type.String(),
			Name:    c.Name,
		}
	}

	r.collections[c.Name] = &collectionData{
		Collection: c,
		members:    make(map[catalog.DatasetID]struct{}),
		summary:    make(map[string]struct{}),
	}
	return nil
}

// SetCollectionChain replaces the ordered children of a CHAINED collection.
func (r *MemoryRegistry) SetCollectionChain(ctx context.Context, parent string, children []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.check(ctx); err != nil {
		return err
	}

	coll, ok := r.collections[parent]
	if !ok {
		return catalog.NotFound("collection", parent)
	}
	if coll.Collection.Type != catalog.CollectionChained {
		return &catalog.StoreError{
			Code:    catalog.ErrInvalidArgument,
			Message: "collection is not CHAINED",
			Name:    parent,
		}
	}
	for _, child := range children {
		if child == parent {
			return &catalog.StoreError{
				Code:    catalog.ErrInvalidArgument,
				Message: "chain cannot contain itself",
				Name:    parent,
			}
		}
		if _, ok := r.collections[child]; !ok {
			return catalog.NotFound("collection", child)
		}
	}

	coll.children = append([]string(nil), children...)
	return nil
}

// InsertDatasets adds datasets to their run collections.
//
// The whole batch is validated before anything is written, so a failing
// batch leaves the registry unchanged.
func (r *MemoryRegistry) InsertDatasets(ctx context.Context, refs []catalog.DatasetRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.check(ctx); err != nil {
		return err
	}

	// Step 1: Validate
	for _, ref := range refs {
		if _, ok := r.datasetTypes[ref.DatasetType]; !ok {
			return catalog.NotFound("dataset type", ref.DatasetType)
		}
		run, ok := r.collections[ref.Run]
		if !ok {
			return catalog.NotFound("collection", ref.Run)
		}
		if run.Collection.Type != catalog.CollectionRun {
			return &catalog.StoreError{
				Code:    catalog.ErrInvalidArgument,
				Message: "datasets can only be inserted into RUN collections",
				Name:    ref.Run,
			}
		}
		if _, exists := r.datasets[ref.ID]; exists {
			return &catalog.StoreError{
				Code:    catalog.ErrAlreadyExists,
				Message: "dataset already exists",
				Name:    ref.ID.String(),
			}
		}
	}

	// Step 2: Apply
	for _, ref := range refs {
		r.datasets[ref.ID] = copyRef(ref)
		run := r.collections[ref.Run]
		run.members[ref.ID] = struct{}{}
		run.summary[ref.DatasetType] = struct{}{}
	}
	return nil
}

// Associate adds existing datasets to a TAGGED or CALIBRATION collection.
func (r *MemoryRegistry) Associate(ctx context.Context, collection string, refs []catalog.DatasetRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.check(ctx); err != nil {
		return err
	}

	coll, ok := r.collections[collection]
	if !ok {
		return catalog.NotFound("collection", collection)
	}
	if t := coll.Collection.Type; t != catalog.CollectionTagged && t != catalog.CollectionCalibration {
		return &catalog.StoreError{
			Code:    catalog.ErrInvalidArgument,
			Message: "datasets can only be associated with TAGGED or CALIBRATION collections",
			Name:    collection,
		}
	}
	for _, ref := range refs {
		if _, ok := r.datasets[ref.ID]; !ok {
			return catalog.NotFound("dataset", ref.ID.String())
		}
	}

	for _, ref := range refs {
		stored := r.datasets[ref.ID]
		coll.members[ref.ID] = struct{}{}
		coll.summary[stored.DatasetType] = struct{}{}
	}
	return nil
}

// RemoveDatasets deletes datasets and their memberships. Unknown IDs are ignored.
func (r *MemoryRegistry) RemoveDatasets(ctx context.Context, refs []catalog.DatasetRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.check(ctx); err != nil {
		return err
	}

	for _, ref := range refs {
		delete(r.datasets, ref.ID)
		for _, coll := range r.collections {
			delete(coll.members, ref.ID)
		}
	}
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func copyDatasetType(dt catalog.DatasetType) catalog.DatasetType {
	dt.Dimensions = append([]string(nil), dt.Dimensions...)
	return dt
}

func copyRef(ref catalog.DatasetRef) catalog.DatasetRef {
	dataID := make(catalog.DataID, len(ref.DataID))
	for k, v := range ref.DataID {
		dataID[k] = v
	}
	ref.DataID = dataID
	return ref
}

func collectionTypeSet(types []catalog.CollectionType) map[catalog.CollectionType]struct{} {
	if len(types) == 0 {
		types = catalog.AllCollectionTypes()
	}
	set := make(map[catalog.CollectionType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

func sortedCollections(m map[string]catalog.Collection) []catalog.Collection {
	out := make([]catalog.Collection, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
