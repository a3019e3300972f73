package datastore

import (
	"context"
	"io"

	"github.com/marmos91/catalogadmin/pkg/catalog"
)

// Datastore is the content store contract.
//
// Thread Safety:
// Implementations must be safe for concurrent use. ComputeChecksum in
// particular is called from many workers at once.
type Datastore interface {
	// GetStoredItemsInfo returns the stored records of a dataset, sorted by
	// component.
	//
	// Returns:
	//   - error: ErrRecordNotFound if the dataset has no records
	GetStoredItemsInfo(ctx context.Context, ref catalog.DatasetRef) ([]StoredFileInfo, error)

	// GetManyURIs resolves the artifact URIs of several datasets. Datasets
	// without records are absent from the result.
	GetManyURIs(ctx context.Context, refs []catalog.DatasetRef) (map[catalog.DatasetID]DatasetURIs, error)

	// ComputeChecksum hashes the artifact at uri with the named algorithm
	// ("md5" or "sha256") and returns the lowercase hex digest.
	ComputeChecksum(ctx context.Context, uri string, algorithm string) (string, error)

	// AddStoredItemInfo writes records in a single transaction.
	AddStoredItemInfo(ctx context.Context, infos []StoredFileInfo, mode InsertMode) error

	// Put stores an artifact for ref and records it without a checksum.
	Put(ctx context.Context, ref catalog.DatasetRef, storageClass string, data io.Reader) (StoredFileInfo, error)

	// Trash moves the records of refs into the trash ledger. Artifacts stay in
	// place until the trash is emptied.
	Trash(ctx context.Context, refs []catalog.DatasetRef) error

	// Close releases the record and artifact stores.
	Close() error
}

// TrashEmptier is implemented by datastores that can process their trash
// ledger. Callers detect it with a type assertion.
type TrashEmptier interface {
	// EmptyTrash deletes trashed artifacts that no live record references.
	//
	// Returns:
	//   - []string: URIs removed (or, in dry-run mode, that would be removed)
	EmptyTrash(ctx context.Context, dryRun bool) ([]string, error)
}

// RecordStore persists stored records and the trash ledger.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Every mutating method is
// atomic: either all of its changes apply or none do.
type RecordStore interface {
	// GetRecords returns the records of each requested dataset. Datasets with
	// no records are absent from the map. Each slice is sorted by component.
	GetRecords(ctx context.Context, ids []catalog.DatasetID) (map[catalog.DatasetID][]StoredFileInfo, error)

	// PutRecords writes records atomically.
	//
	// Returns:
	//   - error: ErrRecordExists in InsertModeInsert when any record exists
	PutRecords(ctx context.Context, infos []StoredFileInfo, mode InsertMode) error

	// TrashRecords moves the live records of ids into the trash ledger.
	//
	// Returns:
	//   - int: Number of records moved
	TrashRecords(ctx context.Context, ids []catalog.DatasetID) (int, error)

	// ListTrash returns every trash ledger entry, sorted by key.
	ListTrash(ctx context.Context) ([]StoredFileInfo, error)

	// DropTrash removes entries from the trash ledger. Unknown entries are
	// ignored.
	DropTrash(ctx context.Context, entries []StoredFileInfo) error

	// ReferencedPaths returns the artifact paths of every live record.
	ReferencedPaths(ctx context.Context) (map[string]struct{}, error)

	// Close releases the store.
	Close() error
}
