package admin

import (
	"bytes"
	"context"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/catalog/memory"
	catalogtesting "github.com/marmos91/catalogadmin/pkg/catalog/testing"
	"github.com/marmos91/catalogadmin/pkg/datastore"
	artifactmemory "github.com/marmos91/catalogadmin/pkg/datastore/artifact/memory"
	"github.com/marmos91/catalogadmin/pkg/datastore/file"
	recordsmemory "github.com/marmos91/catalogadmin/pkg/datastore/records/memory"
	"github.com/marmos91/catalogadmin/pkg/storageclass"
	"github.com/stretchr/testify/require"
)

// testRepo wires a memory registry and a memory-backed file datastore.
type testRepo struct {
	reg     *memory.MemoryRegistry
	ds      datastore.Datastore
	classes *storageclass.Factory
	fx      catalogtesting.Fixture
}

func (r *testRepo) Registry() catalog.Registry     { return r.reg }
func (r *testRepo) Datastore() datastore.Datastore { return r.ds }
func (r *testRepo) StorageClasses() SchemaCatalog  { return r.classes }

// newTestRepo seeds the standard fixture and stores one artifact per dataset
// whose content is the dataset's fixture key.
func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	ctx := context.Background()

	reg := memory.NewMemoryRegistry()
	fx := catalogtesting.Seed(t, reg)

	ds, err := file.New(file.Config{
		Records:   recordsmemory.NewMemoryRecordStore(),
		Artifacts: artifactmemory.NewMemoryArtifactStore("repo"),
	})
	require.NoError(t, err)

	for key, ref := range fx.Refs {
		_, err := ds.Put(ctx, ref, "StructuredDataDict", bytes.NewReader([]byte(key)))
		require.NoError(t, err)
	}

	classes, err := storageclass.NewDefaultFactory()
	require.NoError(t, err)

	repo := &testRepo{reg: reg, ds: ds, classes: classes, fx: fx}
	t.Cleanup(func() {
		_ = ds.Close()
		_ = reg.Close()
	})
	return repo
}

func (r *testRepo) ref(datasetType, run string, visit int) catalog.DatasetRef {
	return r.fx.Refs[catalogtesting.RefKey(datasetType, run, visit)]
}

// checksum returns the stored checksum of ref.
func (r *testRepo) checksum(t *testing.T, ref catalog.DatasetRef) string {
	t.Helper()
	infos, err := r.ds.GetStoredItemsInfo(context.Background(), ref)
	require.NoError(t, err)
	return infos[0].Checksum
}

// countingDatastore counts AddStoredItemInfo calls.
type countingDatastore struct {
	datastore.Datastore
	writes int
	sizes  []int
}

func (c *countingDatastore) AddStoredItemInfo(ctx context.Context, infos []datastore.StoredFileInfo, mode datastore.InsertMode) error {
	c.writes++
	c.sizes = append(c.sizes, len(infos))
	return c.Datastore.AddStoredItemInfo(ctx, infos, mode)
}
