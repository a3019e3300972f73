// Package artifact defines the raw byte storage behind a file datastore.
//
// An artifact store only manages bytes addressed by a relative path. It knows
// nothing about datasets, checksums or trash; the datastore keeps that
// bookkeeping in its record store and uses the artifact store for residency,
// reads and physical deletion.
package artifact

import (
	"context"
	"errors"
	"io"
)

// ErrArtifactNotFound is returned when no artifact exists at a path.
var ErrArtifactNotFound = errors.New("artifact not found")

// Store provides path-addressed artifact storage.
//
// Paths are relative, slash-separated and never start with "/". The format
// of the URI returned by URI is backend-specific (file://, s3://, mem://).
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writes to the same path are last-write-wins.
type Store interface {
	// Read returns a reader for the artifact at path.
	//
	// Returns:
	//   - io.ReadCloser: Reader for the artifact (must be closed by caller)
	//   - error: ErrArtifactNotFound if the artifact doesn't exist
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write stores the bytes from r at path, replacing any existing artifact.
	Write(ctx context.Context, path string, r io.Reader) error

	// Size returns the artifact size in bytes.
	//
	// Returns:
	//   - error: ErrArtifactNotFound if the artifact doesn't exist
	Size(ctx context.Context, path string) (int64, error)

	// Exists reports whether an artifact exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes the artifact at path. Deleting a missing artifact is not
	// an error.
	Delete(ctx context.Context, path string) error

	// List returns every artifact path in the store, sorted.
	List(ctx context.Context) ([]string, error)

	// DeleteBatch removes several artifacts.
	//
	// The operation is best-effort: successfully deleted artifacts are not
	// restored when others fail, and missing artifacts count as deleted.
	//
	// Returns:
	//   - map[string]error: Failed deletions keyed by path (empty = all succeeded)
	//   - error: Only for context cancellation or catastrophic failures
	DeleteBatch(ctx context.Context, paths []string) (failures map[string]error, err error)

	// URI returns the absolute location of path in this store.
	URI(path string) string

	// Path is the inverse of URI.
	//
	// Returns:
	//   - error: If uri does not point into this store
	Path(uri string) (string, error)

	// Close releases resources held by the store.
	Close() error
}
