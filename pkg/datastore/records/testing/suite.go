// Package testing provides a conformance suite for datastore.RecordStore
// implementations.
package testing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RecordStoreTestSuite tests the datastore.RecordStore contract.
type RecordStoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func(t *testing.T) datastore.RecordStore
}

// Run executes all tests in the suite.
func (suite *RecordStoreTestSuite) Run(t *testing.T) {
	t.Run("Records", suite.RunRecordTests)
	t.Run("Trash", suite.RunTrashTests)
}

func (suite *RecordStoreTestSuite) newStore(t *testing.T) datastore.RecordStore {
	t.Helper()
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Record builds a single-file record for tests.
func Record(id catalog.DatasetID, path string) datastore.StoredFileInfo {
	return datastore.StoredFileInfo{
		DatasetID:    id,
		Path:         path,
		Formatter:    "json.Formatter",
		StorageClass: "StructuredDataDict",
		FileSize:     int64(len(path)),
	}
}

// RunRecordTests covers GetRecords, PutRecords and ReferencedPaths.
func (suite *RecordStoreTestSuite) RunRecordTests(t *testing.T) {
	ctx := context.Background()

	t.Run("PutAndGet", func(t *testing.T) {
		store := suite.newStore(t)
		a, b, missing := uuid.New(), uuid.New(), uuid.New()

		image := Record(b, "run/b/image.fits")
		image.Component = "image"
		mask := Record(b, "run/b/mask.fits")
		mask.Component = "mask"

		require.NoError(t, store.PutRecords(ctx, []datastore.StoredFileInfo{
			Record(a, "run/a.json"), mask, image,
		}, datastore.InsertModeInsert))

		got, err := store.GetRecords(ctx, []catalog.DatasetID{a, b, missing})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, []datastore.StoredFileInfo{Record(a, "run/a.json")}, got[a])
		require.Len(t, got[b], 2)
		assert.Equal(t, "image", got[b][0].Component, "sorted by component")
		assert.Equal(t, "mask", got[b][1].Component)
		assert.NotContains(t, got, missing)
	})

	t.Run("InsertRejectsExisting", func(t *testing.T) {
		store := suite.newStore(t)
		a, b := uuid.New(), uuid.New()
		require.NoError(t, store.PutRecords(ctx, []datastore.StoredFileInfo{Record(a, "a")}, datastore.InsertModeInsert))

		err := store.PutRecords(ctx, []datastore.StoredFileInfo{Record(b, "b"), Record(a, "a2")}, datastore.InsertModeInsert)
		assert.ErrorIs(t, err, datastore.ErrRecordExists)

		got, err := store.GetRecords(ctx, []catalog.DatasetID{a, b})
		require.NoError(t, err)
		assert.NotContains(t, got, b, "failed batch applies nothing")
		assert.Equal(t, "a", got[a][0].Path)
	})

	t.Run("ReplaceWholeRecord", func(t *testing.T) {
		store := suite.newStore(t)
		a := uuid.New()
		original := Record(a, "run/a.json")
		require.NoError(t, store.PutRecords(ctx, []datastore.StoredFileInfo{original}, datastore.InsertModeInsert))

		require.NoError(t, store.PutRecords(ctx, []datastore.StoredFileInfo{original.Update("abc123")}, datastore.InsertModeReplace))

		got, err := store.GetRecords(ctx, []catalog.DatasetID{a})
		require.NoError(t, err)
		require.Len(t, got[a], 1)
		assert.Equal(t, original.Update("abc123"), got[a][0])
	})

	t.Run("ReferencedPaths", func(t *testing.T) {
		store := suite.newStore(t)
		require.NoError(t, store.PutRecords(ctx, []datastore.StoredFileInfo{
			Record(uuid.New(), "x"), Record(uuid.New(), "y"),
		}, datastore.InsertModeInsert))

		paths, err := store.ReferencedPaths(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"x": {}, "y": {}}, paths)
	})
}

// RunTrashTests covers TrashRecords, ListTrash and DropTrash.
func (suite *RecordStoreTestSuite) RunTrashTests(t *testing.T) {
	ctx := context.Background()

	t.Run("TrashMovesRecords", func(t *testing.T) {
		store := suite.newStore(t)
		a, b := uuid.New(), uuid.New()
		require.NoError(t, store.PutRecords(ctx, []datastore.StoredFileInfo{
			Record(a, "a"), Record(b, "b"),
		}, datastore.InsertModeInsert))

		moved, err := store.TrashRecords(ctx, []catalog.DatasetID{a, uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, 1, moved)

		live, err := store.GetRecords(ctx, []catalog.DatasetID{a, b})
		require.NoError(t, err)
		assert.NotContains(t, live, a)
		assert.Contains(t, live, b)

		trash, err := store.ListTrash(ctx)
		require.NoError(t, err)
		assert.Equal(t, []datastore.StoredFileInfo{Record(a, "a")}, trash)

		paths, err := store.ReferencedPaths(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"b": {}}, paths, "trashed records are not references")
	})

	t.Run("DropTrash", func(t *testing.T) {
		store := suite.newStore(t)
		a, b := uuid.New(), uuid.New()
		require.NoError(t, store.PutRecords(ctx, []datastore.StoredFileInfo{
			Record(a, "a"), Record(b, "b"),
		}, datastore.InsertModeInsert))
		_, err := store.TrashRecords(ctx, []catalog.DatasetID{a, b})
		require.NoError(t, err)

		require.NoError(t, store.DropTrash(ctx, []datastore.StoredFileInfo{Record(a, "a"), Record(uuid.New(), "z")}))

		trash, err := store.ListTrash(ctx)
		require.NoError(t, err)
		assert.Equal(t, []datastore.StoredFileInfo{Record(b, "b")}, trash)
	})

	t.Run("EmptyTrash", func(t *testing.T) {
		store := suite.newStore(t)
		trash, err := store.ListTrash(ctx)
		require.NoError(t, err)
		assert.Empty(t, trash)
	})
}
