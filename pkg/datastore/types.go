// Package datastore defines the content store contract consumed by the
// maintenance operations, plus the record types it keeps per dataset.
//
// The datastore owns two pieces of state:
//
//   - Stored records: one StoredFileInfo per dataset component, locating the
//     artifact and carrying its optional checksum.
//   - The trash ledger: records of datasets removed from the registry whose
//     artifacts are pending physical deletion.
//
// Records live in a RecordStore, bytes in an artifact.Store. The file
// implementation in pkg/datastore/file combines the two.
package datastore

import (
	"errors"
	"fmt"

	"github.com/marmos91/catalogadmin/pkg/catalog"
)

var (
	// ErrRecordNotFound is returned when a dataset has no stored records.
	ErrRecordNotFound = errors.New("stored record not found")

	// ErrRecordExists is returned by InsertModeInsert when a record for the
	// same dataset component already exists.
	ErrRecordExists = errors.New("stored record already exists")

	// ErrUnsupportedAlgorithm is returned for an unknown checksum algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported checksum algorithm")
)

// InsertMode controls how AddStoredItemInfo treats existing records.
type InsertMode int

const (
	// InsertModeInsert fails if any record already exists.
	InsertModeInsert InsertMode = iota

	// InsertModeReplace upserts whole records keyed by dataset ID and
	// component. Records are never partially updated.
	InsertModeReplace
)

func (m InsertMode) String() string {
	switch m {
	case InsertModeInsert:
		return "INSERT"
	case InsertModeReplace:
		return "REPLACE"
	default:
		return fmt.Sprintf("InsertMode(%d)", int(m))
	}
}

// StoredFileInfo locates one artifact backing a dataset.
//
// A dataset stored as a single file has one record with an empty Component;
// disassembled datasets have one record per component.
type StoredFileInfo struct {
	DatasetID    catalog.DatasetID `json:"dataset_id"`
	Path         string            `json:"path"`
	Formatter    string            `json:"formatter"`
	StorageClass string            `json:"storage_class"`
	Component    string            `json:"component,omitempty"`
	Checksum     string            `json:"checksum,omitempty"`
	FileSize     int64             `json:"file_size"`
}

// Update returns a copy of the record with its checksum replaced.
func (i StoredFileInfo) Update(checksum string) StoredFileInfo {
	i.Checksum = checksum
	return i
}

// Key identifies the record within its store.
func (i StoredFileInfo) Key() string {
	return i.DatasetID.String() + "/" + i.Component
}

// DatasetURIs holds the artifact locations of one dataset.
type DatasetURIs struct {
	// Primary is the URI of the single-file artifact. Empty for disassembled
	// datasets.
	Primary string

	// Components maps component name to URI for disassembled datasets.
	Components map[string]string
}
