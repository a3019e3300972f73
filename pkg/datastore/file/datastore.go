// Package file implements datastore.Datastore on top of a record store and
// an artifact store.
//
// Every dataset is written as one artifact at <run>/<dataset type>/<id>
// unless a caller records component artifacts directly through
// AddStoredItemInfo. The datastore also implements datastore.TrashEmptier.
package file

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/marmos91/catalogadmin/internal/logger"
	"github.com/marmos91/catalogadmin/internal/ratelimiter"
	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/datastore"
	"github.com/marmos91/catalogadmin/pkg/datastore/artifact"
)

// DefaultFormatter is recorded for artifacts written through Put.
const DefaultFormatter = "catalogadmin.BytesFormatter"

// Metrics receives observations from the datastore.
//
// A nil Metrics in Config is replaced by a no-op implementation.
type Metrics interface {
	// ObserveChecksum records one digest computation.
	ObserveChecksum(algorithm string, bytes int64, duration time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) ObserveChecksum(string, int64, time.Duration, error) {}

// Config configures a FileDatastore.
type Config struct {
	// Name identifies the datastore in logs.
	Name string

	// Records holds stored records and the trash ledger (required).
	Records datastore.RecordStore

	// Artifacts holds artifact bytes (required).
	Artifacts artifact.Store

	// Limiter throttles artifact reads in ComputeChecksum (nil = unlimited).
	Limiter *ratelimiter.RateLimiter

	// TrashBatchSize is how many artifacts EmptyTrash deletes per batch
	// (default: 1000).
	TrashBatchSize int

	// Metrics receives checksum observations (nil disables collection).
	Metrics Metrics
}

// FileDatastore implements datastore.Datastore and datastore.TrashEmptier.
//
// Thread Safety:
// Safe for concurrent use; all state lives in the record and artifact stores.
type FileDatastore struct {
	name           string
	records        datastore.RecordStore
	artifacts      artifact.Store
	limiter        *ratelimiter.RateLimiter
	trashBatchSize int
	metrics        Metrics
}

// New creates a FileDatastore. It takes ownership of both stores; Close
// closes them.
func New(cfg Config) (*FileDatastore, error) {
	if cfg.Records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if cfg.Artifacts == nil {
		return nil, fmt.Errorf("artifact store is required")
	}

	if cfg.Name == "" {
		cfg.Name = "FileDatastore"
	}
	if cfg.TrashBatchSize <= 0 {
		cfg.TrashBatchSize = 1000
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}

	return &FileDatastore{
		name:           cfg.Name,
		records:        cfg.Records,
		artifacts:      cfg.Artifacts,
		limiter:        cfg.Limiter,
		trashBatchSize: cfg.TrashBatchSize,
		metrics:        cfg.Metrics,
	}, nil
}

// Name returns the datastore name.
func (d *FileDatastore) Name() string {
	return d.name
}

// Artifacts exposes the underlying artifact store.
func (d *FileDatastore) Artifacts() artifact.Store {
	return d.artifacts
}

// GetStoredItemsInfo implements datastore.Datastore.
func (d *FileDatastore) GetStoredItemsInfo(ctx context.Context, ref catalog.DatasetRef) ([]datastore.StoredFileInfo, error) {
	records, err := d.records.GetRecords(ctx, []catalog.DatasetID{ref.ID})
	if err != nil {
		return nil, err
	}

	infos, ok := records[ref.ID]
	if !ok || len(infos) == 0 {
		return nil, fmt.Errorf("dataset %s: %w", ref.ID, datastore.ErrRecordNotFound)
	}
	return infos, nil
}

// GetManyURIs implements datastore.Datastore.
//
// A dataset with a single record without component resolves to a primary
// URI; anything else resolves to component URIs only.
func (d *FileDatastore) GetManyURIs(ctx context.Context, refs []catalog.DatasetRef) (map[catalog.DatasetID]datastore.DatasetURIs, error) {
	ids := make([]catalog.DatasetID, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}

	records, err := d.records.GetRecords(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[catalog.DatasetID]datastore.DatasetURIs, len(records))
	for id, infos := range records {
		var uris datastore.DatasetURIs
		if len(infos) == 1 && infos[0].Component == "" {
			uris.Primary = d.artifacts.URI(infos[0].Path)
		} else {
			uris.Components = make(map[string]string, len(infos))
			for _, info := range infos {
				uris.Components[info.Component] = d.artifacts.URI(info.Path)
			}
		}
		out[id] = uris
	}
	return out, nil
}

// ComputeChecksum implements datastore.Datastore.
//
// Each call waits for a token from the read limiter before opening the
// artifact.
func (d *FileDatastore) ComputeChecksum(ctx context.Context, uri string, algorithm string) (sum string, err error) {
	start := time.Now()
	var size int64
	defer func() {
		d.metrics.ObserveChecksum(algorithm, size, time.Since(start), err)
	}()

	if _, err = datastore.NewHash(algorithm); err != nil {
		return "", err
	}

	p, err := d.artifacts.Path(uri)
	if err != nil {
		return "", err
	}

	if err = d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	r, err := d.artifacts.Read(ctx, p)
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	counter := &countingReader{r: r}
	sum, err = datastore.Digest(counter, algorithm)
	size = counter.n
	if err != nil {
		return "", fmt.Errorf("%s: %w", uri, err)
	}
	return sum, nil
}

// AddStoredItemInfo implements datastore.Datastore.
func (d *FileDatastore) AddStoredItemInfo(ctx context.Context, infos []datastore.StoredFileInfo, mode datastore.InsertMode) error {
	if len(infos) == 0 {
		return nil
	}
	if err := d.records.PutRecords(ctx, infos, mode); err != nil {
		return fmt.Errorf("failed to %s %d stored records: %w", strings.ToLower(mode.String()), len(infos), err)
	}
	return nil
}

// Put implements datastore.Datastore.
//
// Datasets that already have records are rejected before any bytes are
// written. If the record insert fails after the write, the artifact is
// removed again.
func (d *FileDatastore) Put(ctx context.Context, ref catalog.DatasetRef, storageClass string, data io.Reader) (datastore.StoredFileInfo, error) {
	existing, err := d.records.GetRecords(ctx, []catalog.DatasetID{ref.ID})
	if err != nil {
		return datastore.StoredFileInfo{}, err
	}
	if _, ok := existing[ref.ID]; ok {
		return datastore.StoredFileInfo{}, fmt.Errorf("%w: dataset %s", datastore.ErrRecordExists, ref.ID)
	}

	p := ArtifactPath(ref)

	if err := d.artifacts.Write(ctx, p, data); err != nil {
		return datastore.StoredFileInfo{}, err
	}

	size, err := d.artifacts.Size(ctx, p)
	if err != nil {
		return datastore.StoredFileInfo{}, err
	}

	info := datastore.StoredFileInfo{
		DatasetID:    ref.ID,
		Path:         p,
		Formatter:    DefaultFormatter,
		StorageClass: storageClass,
		FileSize:     size,
	}

	if err := d.records.PutRecords(ctx, []datastore.StoredFileInfo{info}, datastore.InsertModeInsert); err != nil {
		if derr := d.artifacts.Delete(ctx, p); derr != nil {
			logger.Warn("Failed to remove artifact %s after record insert failed: %v", p, derr)
		}
		return datastore.StoredFileInfo{}, err
	}
	return info, nil
}

// Trash implements datastore.Datastore.
func (d *FileDatastore) Trash(ctx context.Context, refs []catalog.DatasetRef) error {
	ids := make([]catalog.DatasetID, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}

	moved, err := d.records.TrashRecords(ctx, ids)
	if err != nil {
		return err
	}
	logger.Debug("%s: moved %d records to trash", d.name, moved)
	return nil
}

// Close closes the record store, then the artifact store.
func (d *FileDatastore) Close() error {
	rerr := d.records.Close()
	aerr := d.artifacts.Close()
	if rerr != nil {
		return rerr
	}
	return aerr
}

// ArtifactPath returns the relative artifact path Put uses for ref.
func ArtifactPath(ref catalog.DatasetRef) string {
	return path.Join(ref.Run, ref.DatasetType, ref.ID.String())
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var (
	_ datastore.Datastore    = (*FileDatastore)(nil)
	_ datastore.TrashEmptier = (*FileDatastore)(nil)
)
