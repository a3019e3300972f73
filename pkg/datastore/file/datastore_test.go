package file

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/datastore"
	"github.com/marmos91/catalogadmin/pkg/datastore/artifact"
	artifactfs "github.com/marmos91/catalogadmin/pkg/datastore/artifact/fs"
	artifactmemory "github.com/marmos91/catalogadmin/pkg/datastore/artifact/memory"
	recordsbadger "github.com/marmos91/catalogadmin/pkg/datastore/records/badger"
	recordsmemory "github.com/marmos91/catalogadmin/pkg/datastore/records/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryDatastore(t *testing.T) *FileDatastore {
	t.Helper()
	ds, err := New(Config{
		Records:   recordsmemory.NewMemoryRecordStore(),
		Artifacts: artifactmemory.NewMemoryArtifactStore("test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func newRef(datasetType, run string) catalog.DatasetRef {
	return catalog.DatasetRef{
		ID:          uuid.New(),
		DatasetType: datasetType,
		DataID:      catalog.DataID{"visit": 1},
		Run:         run,
	}
}

func mustPut(t *testing.T, ds *FileDatastore, ref catalog.DatasetRef, data string) datastore.StoredFileInfo {
	t.Helper()
	info, err := ds.Put(context.Background(), ref, "StructuredDataDict", bytes.NewReader([]byte(data)))
	require.NoError(t, err)
	return info
}

func TestNew_RequiresStores(t *testing.T) {
	_, err := New(Config{Artifacts: artifactmemory.NewMemoryArtifactStore("")})
	assert.Error(t, err)
	_, err = New(Config{Records: recordsmemory.NewMemoryRecordStore()})
	assert.Error(t, err)
}

func TestPutAndGetStoredItemsInfo(t *testing.T) {
	ctx := context.Background()
	ds := newMemoryDatastore(t)
	ref := newRef("a_metadata", "run/1")

	info := mustPut(t, ds, ref, "payload")
	assert.Equal(t, "run/1/a_metadata/"+ref.ID.String(), info.Path)
	assert.Equal(t, int64(len("payload")), info.FileSize)
	assert.Empty(t, info.Checksum)

	infos, err := ds.GetStoredItemsInfo(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []datastore.StoredFileInfo{info}, infos)

	_, err = ds.GetStoredItemsInfo(ctx, newRef("a_metadata", "run/1"))
	assert.ErrorIs(t, err, datastore.ErrRecordNotFound)
}

func TestPut_Duplicate(t *testing.T) {
	ctx := context.Background()
	ds := newMemoryDatastore(t)
	ref := newRef("a", "run")

	mustPut(t, ds, ref, "one")
	_, err := ds.Put(ctx, ref, "StructuredDataDict", bytes.NewReader([]byte("two")))
	assert.ErrorIs(t, err, datastore.ErrRecordExists)

	r, err := ds.Artifacts().Read(ctx, ArtifactPath(ref))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data), "existing artifact is untouched")
}

func TestGetManyURIs(t *testing.T) {
	ctx := context.Background()
	ds := newMemoryDatastore(t)

	single := newRef("calexp", "run/1")
	mustPut(t, ds, single, "image")

	disassembled := newRef("calexp", "run/1")
	require.NoError(t, ds.AddStoredItemInfo(ctx, []datastore.StoredFileInfo{
		{DatasetID: disassembled.ID, Path: "run/1/calexp/image.fits", Component: "image"},
		{DatasetID: disassembled.ID, Path: "run/1/calexp/mask.fits", Component: "mask"},
	}, datastore.InsertModeInsert))

	missing := newRef("calexp", "run/1")

	uris, err := ds.GetManyURIs(ctx, []catalog.DatasetRef{single, disassembled, missing})
	require.NoError(t, err)
	require.Len(t, uris, 2)

	assert.Equal(t, "mem://test/"+ArtifactPath(single), uris[single.ID].Primary)
	assert.Empty(t, uris[disassembled.ID].Primary)
	assert.Equal(t, map[string]string{
		"image": "mem://test/run/1/calexp/image.fits",
		"mask":  "mem://test/run/1/calexp/mask.fits",
	}, uris[disassembled.ID].Components)
	assert.NotContains(t, uris, missing.ID)
}

func TestComputeChecksum(t *testing.T) {
	ctx := context.Background()
	ds := newMemoryDatastore(t)
	ref := newRef("a", "run")
	mustPut(t, ds, ref, "hello")

	uri := ds.Artifacts().URI(ArtifactPath(ref))

	sum, err := ds.ComputeChecksum(ctx, uri, "md5")
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", sum)

	_, err = ds.ComputeChecksum(ctx, uri, "whirlpool")
	assert.ErrorIs(t, err, datastore.ErrUnsupportedAlgorithm)

	_, err = ds.ComputeChecksum(ctx, "mem://test/missing", "md5")
	assert.ErrorIs(t, err, artifact.ErrArtifactNotFound)

	_, err = ds.ComputeChecksum(ctx, "s3://other/x", "md5")
	assert.Error(t, err)
}

func TestAddStoredItemInfo_Replace(t *testing.T) {
	ctx := context.Background()
	ds := newMemoryDatastore(t)
	ref := newRef("a", "run")
	info := mustPut(t, ds, ref, "x")

	require.NoError(t, ds.AddStoredItemInfo(ctx, []datastore.StoredFileInfo{info.Update("abc")}, datastore.InsertModeReplace))

	infos, err := ds.GetStoredItemsInfo(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "abc", infos[0].Checksum)

	assert.NoError(t, ds.AddStoredItemInfo(ctx, nil, datastore.InsertModeReplace))
}

func TestEmptyTrash_DryRunThenReal(t *testing.T) {
	ctx := context.Background()
	ds := newMemoryDatastore(t)

	keep := newRef("a", "run")
	gone1 := newRef("a", "run")
	gone2 := newRef("b", "run")
	mustPut(t, ds, keep, "keep")
	mustPut(t, ds, gone1, "gone1")
	mustPut(t, ds, gone2, "gone2")

	require.NoError(t, ds.Trash(ctx, []catalog.DatasetRef{gone1, gone2}))

	expected := []string{
		ds.Artifacts().URI(ArtifactPath(gone1)),
		ds.Artifacts().URI(ArtifactPath(gone2)),
	}
	if expected[0] > expected[1] {
		expected[0], expected[1] = expected[1], expected[0]
	}

	// Dry run reports but removes nothing.
	removed, err := ds.EmptyTrash(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, expected, removed)

	paths, err := ds.Artifacts().List(ctx)
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	// Real run removes exactly the reported set.
	removed, err = ds.EmptyTrash(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, expected, removed)

	paths, err = ds.Artifacts().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{ArtifactPath(keep)}, paths)

	// Ledger is cleared.
	removed, err = ds.EmptyTrash(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestEmptyTrash_KeepsReferencedArtifacts(t *testing.T) {
	ctx := context.Background()
	ds := newMemoryDatastore(t)

	// Two datasets sharing one artifact; only one is trashed.
	owner := newRef("raw", "run")
	info := mustPut(t, ds, owner, "shared")
	sharer := newRef("raw", "run")
	shared := info
	shared.DatasetID = sharer.ID
	require.NoError(t, ds.AddStoredItemInfo(ctx, []datastore.StoredFileInfo{shared}, datastore.InsertModeInsert))

	require.NoError(t, ds.Trash(ctx, []catalog.DatasetRef{sharer}))

	removed, err := ds.EmptyTrash(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, removed)

	exists, err := ds.Artifacts().Exists(ctx, info.Path)
	require.NoError(t, err)
	assert.True(t, exists, "artifact with a live reference survives")

	trash, err := ds.records.ListTrash(ctx)
	require.NoError(t, err)
	assert.Empty(t, trash, "referenced entries are dropped from the ledger")
}

func TestEmptyTrash_MissingArtifactNotReported(t *testing.T) {
	ctx := context.Background()
	ds := newMemoryDatastore(t)
	ref := newRef("a", "run")
	info := mustPut(t, ds, ref, "x")

	require.NoError(t, ds.Trash(ctx, []catalog.DatasetRef{ref}))
	require.NoError(t, ds.Artifacts().Delete(ctx, info.Path))

	removed, err := ds.EmptyTrash(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, removed)

	trash, err := ds.records.ListTrash(ctx)
	require.NoError(t, err)
	assert.Empty(t, trash)
}

// probingStore counts existence checks and listings.
type probingStore struct {
	artifact.Store
	exists int
	lists  int
}

func (p *probingStore) Exists(ctx context.Context, path string) (bool, error) {
	p.exists++
	return p.Store.Exists(ctx, path)
}

func (p *probingStore) List(ctx context.Context) ([]string, error) {
	p.lists++
	return p.Store.List(ctx)
}

func TestEmptyTrash_ExistenceChecks(t *testing.T) {
	tests := []struct {
		name       string
		trashed    int
		wantExists int
		wantLists  int
	}{
		{name: "few_paths_checked_individually", trashed: 3, wantExists: 3},
		{name: "many_paths_listed_once", trashed: listThreshold + 4, wantLists: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := &probingStore{Store: artifactmemory.NewMemoryArtifactStore("test")}
			ds, err := New(Config{Records: recordsmemory.NewMemoryRecordStore(), Artifacts: store})
			require.NoError(t, err)
			defer func() { _ = ds.Close() }()

			live := newRef("a", "run")
			mustPut(t, ds, live, "live")

			var refs []catalog.DatasetRef
			for i := 0; i < tt.trashed; i++ {
				ref := newRef("a", "run")
				mustPut(t, ds, ref, "x")
				refs = append(refs, ref)
			}
			require.NoError(t, ds.Trash(ctx, refs))

			// One trashed artifact is already gone.
			missing := ArtifactPath(refs[0])
			require.NoError(t, store.Delete(ctx, missing))

			var want []string
			for _, ref := range refs[1:] {
				want = append(want, ArtifactPath(ref))
			}
			sort.Strings(want)

			removed, err := ds.EmptyTrash(ctx, true)
			require.NoError(t, err)
			assert.Equal(t, ds.uris(want), removed)
			assert.Equal(t, tt.wantExists, store.exists)
			assert.Equal(t, tt.wantLists, store.lists)

			ok, err := store.Exists(ctx, ArtifactPath(live))
			require.NoError(t, err)
			assert.True(t, ok, "live artifact untouched")
		})
	}
}

// failingStore fails deletion of one path.
type failingStore struct {
	artifact.Store
	failPath string
}

func (f *failingStore) DeleteBatch(ctx context.Context, paths []string) (map[string]error, error) {
	var keep []string
	for _, p := range paths {
		if p != f.failPath {
			keep = append(keep, p)
		}
	}
	failures, err := f.Store.DeleteBatch(ctx, keep)
	if failures == nil {
		failures = make(map[string]error)
	}
	for _, p := range paths {
		if p == f.failPath {
			failures[p] = errors.New("permission denied")
		}
	}
	return failures, err
}

func TestEmptyTrash_FailedDeletionStaysInTrash(t *testing.T) {
	ctx := context.Background()
	records := recordsmemory.NewMemoryRecordStore()
	mem := artifactmemory.NewMemoryArtifactStore("test")

	ok := newRef("a", "run")
	bad := newRef("a", "run")

	ds, err := New(Config{
		Records:        records,
		Artifacts:      &failingStore{Store: mem, failPath: ArtifactPath(bad)},
		TrashBatchSize: 1,
	})
	require.NoError(t, err)
	defer func() { _ = ds.Close() }()

	mustPut(t, ds, ok, "ok")
	mustPut(t, ds, bad, "bad")
	require.NoError(t, ds.Trash(ctx, []catalog.DatasetRef{ok, bad}))

	removed, err := ds.EmptyTrash(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{mem.URI(ArtifactPath(ok))}, removed)

	trash, err := records.ListTrash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, bad.ID, trash[0].DatasetID)
}

func TestFileDatastore_OnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	records, err := recordsbadger.NewBadgerRecordStore(ctx, recordsbadger.BadgerRecordStoreConfig{DBPath: dir + "/records"})
	require.NoError(t, err)
	artifacts, err := artifactfs.NewFSArtifactStore(ctx, dir+"/artifacts")
	require.NoError(t, err)

	ds, err := New(Config{Records: records, Artifacts: artifacts})
	require.NoError(t, err)
	defer func() { _ = ds.Close() }()

	ref := newRef("calexp", "run/1")
	mustPut(t, ds, ref, "hello")

	uris, err := ds.GetManyURIs(ctx, []catalog.DatasetRef{ref})
	require.NoError(t, err)

	sum, err := ds.ComputeChecksum(ctx, uris[ref.ID].Primary, "md5")
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", sum)

	require.NoError(t, ds.Trash(ctx, []catalog.DatasetRef{ref}))
	removed, err := ds.EmptyTrash(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{uris[ref.ID].Primary}, removed)
}
