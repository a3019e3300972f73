package catalog

import (
	"context"
	"sort"
)

// ChainLookup returns a collection's type and, for CHAINED collections, its
// ordered children.
type ChainLookup func(ctx context.Context, name string) (CollectionType, []string, error)

// FlattenSearchPath expands CHAINED collections into their children,
// depth-first and in order, keeping the first occurrence of each name.
// Chains that (directly or indirectly) contain themselves are expanded once.
func FlattenSearchPath(ctx context.Context, names []string, lookup ChainLookup) ([]string, error) {
	var (
		out      []string
		seen     = make(map[string]struct{})
		visiting = make(map[string]struct{})
	)

	var walk func(name string) error
	walk = func(name string) error {
		if _, ok := visiting[name]; ok {
			return nil
		}
		ctype, children, err := lookup(ctx, name)
		if err != nil {
			return err
		}
		if ctype != CollectionChained {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
			return nil
		}

		visiting[name] = struct{}{}
		defer delete(visiting, name)
		for _, child := range children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range names {
		if err := walk(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SortRefs orders references by dataset type, data ID, run and ID.
func SortRefs(refs []DatasetRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.DatasetType != b.DatasetType {
			return a.DatasetType < b.DatasetType
		}
		if ak, bk := a.DataID.Key(), b.DataID.Key(); ak != bk {
			return ak < bk
		}
		if a.Run != b.Run {
			return a.Run < b.Run
		}
		return a.ID.String() < b.ID.String()
	})
}

// SelectDatasets applies the where predicate, find-first resolution and the
// limit to candidate references grouped by collection, in search path order.
//
// Registries gather the per-collection candidates for a DatasetQuery (with
// the dataset type pattern already applied) and delegate the rest here so
// every backend resolves queries identically.
//
// Parameters:
//   - q: The query being answered; Where must compile
//   - byCollection: Candidates per collection, in search path order
//
// Returns:
//   - []DatasetRef: Matching references, without duplicates
//   - error: StoreError with ErrInvalidArgument for a bad query
func SelectDatasets(q DatasetQuery, byCollection [][]DatasetRef) ([]DatasetRef, error) {
	if err := ValidateQuery(q); err != nil {
		return nil, err
	}
	where, err := CompileWhere(q.Where)
	if err != nil {
		return nil, err
	}

	var (
		out     []DatasetRef
		seenIDs = make(map[DatasetID]struct{})
		found   = make(map[string]struct{})
	)

	for _, refs := range byCollection {
		refs = append([]DatasetRef(nil), refs...)
		SortRefs(refs)

		// Keys claimed by this collection; applied after the collection so
		// that find-first never drops datasets sharing a key within it.
		claimed := make(map[string]struct{})

		for _, ref := range refs {
			if _, dup := seenIDs[ref.ID]; dup {
				continue
			}
			if !where.Match(ref) {
				continue
			}
			key := ref.DatasetType + "\x00" + ref.DataID.Key()
			if q.FindFirst {
				if _, done := found[key]; done {
					continue
				}
				claimed[key] = struct{}{}
			}

			seenIDs[ref.ID] = struct{}{}
			out = append(out, ref)
			if q.Limit > 0 && len(out) >= q.Limit {
				return out, nil
			}
		}

		for key := range claimed {
			found[key] = struct{}{}
		}
	}
	return out, nil
}

// ValidateQuery checks the structural constraints of a DatasetQuery.
func ValidateQuery(q DatasetQuery) error {
	if q.Limit < 0 {
		return &StoreError{
			Code:    ErrInvalidArgument,
			Message: "dataset query limit must not be negative",
		}
	}
	if q.FindFirst && len(q.Collections) == 0 {
		return &StoreError{
			Code:    ErrInvalidArgument,
			Message: "find-first queries require an explicit collection search path",
		}
	}
	return nil
}
