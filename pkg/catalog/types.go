// Package catalog defines the dataset catalog domain model and the Registry
// contract consumed by the maintenance operations.
//
// The registry tracks three kinds of records:
//   - dataset types: a name bound to exactly one storage class
//   - collections: named groups of datasets (RUN, TAGGED, CHAINED, CALIBRATION)
//   - datasets: one reference per (dataset type, data ID, run)
//
// Each non-chained collection also carries a cached summary of the dataset
// type names believed to be present in it. Summaries are a fast-path index
// and may drift from the actual membership; see Registry.RefreshCollectionSummaries.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// CollectionType categorises a collection.
type CollectionType int

const (
	// CollectionRun owns the datasets written into it.
	CollectionRun CollectionType = iota + 1

	// CollectionTagged holds associations to datasets owned by runs.
	CollectionTagged

	// CollectionChained is an ordered search path over other collections.
	CollectionChained

	// CollectionCalibration holds associations to calibration datasets.
	CollectionCalibration
)

// AllCollectionTypes returns every collection type in declaration order.
func AllCollectionTypes() []CollectionType {
	return []CollectionType{CollectionRun, CollectionTagged, CollectionChained, CollectionCalibration}
}

func (t CollectionType) String() string {
	switch t {
	case CollectionRun:
		return "RUN"
	case CollectionTagged:
		return "TAGGED"
	case CollectionChained:
		return "CHAINED"
	case CollectionCalibration:
		return "CALIBRATION"
	default:
		return fmt.Sprintf("CollectionType(%d)", int(t))
	}
}

// ParseCollectionType parses a case-insensitive collection type name.
func ParseCollectionType(s string) (CollectionType, error) {
	for _, t := range AllCollectionTypes() {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, &StoreError{
		Code:    ErrInvalidArgument,
		Message: "unknown collection type",
		Name:    s,
	}
}

// Collection is a named collection and its type.
type Collection struct {
	Name string
	Type CollectionType
}

// DatasetType binds a name to a storage class and dimension signature.
type DatasetType struct {
	Name         string
	StorageClass string
	Dimensions   []string
}

func (d DatasetType) String() string {
	return fmt.Sprintf("DatasetType(%s, {%s}, %s)", d.Name, strings.Join(d.Dimensions, ", "), d.StorageClass)
}

// DatasetID uniquely identifies one dataset.
type DatasetID = uuid.UUID

// NewDatasetID returns a fresh random dataset ID.
func NewDatasetID() DatasetID {
	return uuid.New()
}

// DataID is the data coordinate of a dataset (dimension name to value).
type DataID map[string]any

// String renders the data ID with sorted keys so it is stable in logs.
func (d DataID) String() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, d[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Key returns a canonical string used to compare data IDs.
func (d DataID) Key() string {
	return d.String()
}

// DatasetRef identifies one dataset instance.
type DatasetRef struct {
	ID          DatasetID
	DatasetType string
	DataID      DataID
	Run         string
}

func (r DatasetRef) String() string {
	return fmt.Sprintf("%s@%s [run=%s id=%s]", r.DatasetType, r.DataID, r.Run, r.ID)
}

// CollectionSummary is the cached set of dataset type names for a collection.
type CollectionSummary struct {
	DatasetTypes map[string]struct{}
}

// NewCollectionSummary builds a summary from names.
func NewCollectionSummary(names ...string) CollectionSummary {
	s := CollectionSummary{DatasetTypes: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.DatasetTypes[n] = struct{}{}
	}
	return s
}

// Names returns the summary's dataset type names sorted.
func (s CollectionSummary) Names() []string {
	names := make([]string, 0, len(s.DatasetTypes))
	for n := range s.DatasetTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is in the summary.
func (s CollectionSummary) Has(name string) bool {
	_, ok := s.DatasetTypes[name]
	return ok
}
