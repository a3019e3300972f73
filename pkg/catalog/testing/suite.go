package testing

import (
	"context"
	"strconv"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/stretchr/testify/require"
)

// RegistryTestSuite is a conformance suite for catalog.WritableRegistry
// implementations. It tests the interface contract, not implementation
// details, so the memory and SQL registries are held to the same behaviour.
type RegistryTestSuite struct {
	// NewRegistry creates a fresh, empty registry for each test.
	NewRegistry func(t *testing.T) catalog.WritableRegistry
}

// Run executes all tests in the suite.
func (suite *RegistryTestSuite) Run(test *testing.T) {
	test.Run("DatasetTypes", suite.RunDatasetTypeTests)
	test.Run("Collections", suite.RunCollectionTests)
	test.Run("Datasets", suite.RunDatasetTests)
	test.Run("Summaries", suite.RunSummaryTests)
	test.Run("StorageClassUpdate", suite.RunStorageClassUpdateTests)
}

// newRegistry creates a registry that is closed when the test ends.
func (suite *RegistryTestSuite) newRegistry(t *testing.T) catalog.WritableRegistry {
	t.Helper()
	reg := suite.NewRegistry(t)
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

// Fixture holds the IDs created by Seed.
type Fixture struct {
	// Refs maps "<dataset type>/<run>/<visit>" to the inserted reference.
	Refs map[string]catalog.DatasetRef
}

// Seed populates a registry with a small repository:
//
//	dataset types: a_metadata, c_metadata (StructuredDataDict), b_other
//	  (StructuredDataDict), calexp (ExposureF)
//	runs: run/1, run/2; tagged: tagged/best; chained: defaults -> run/2, run/1
//
// run/1 has calexp visits 1, 2 and a_metadata visit 1. run/2 has calexp visit 1
// and b_other visit 1. tagged/best holds run/1's calexp visit 2.
func Seed(t *testing.T, reg catalog.WritableRegistry) Fixture {
	t.Helper()
	ctx := context.Background()

	for _, dt := range []catalog.DatasetType{
		{Name: "a_metadata", StorageClass: "StructuredDataDict", Dimensions: []string{"instrument", "visit"}},
		{Name: "b_other", StorageClass: "StructuredDataDict", Dimensions: []string{"instrument", "visit"}},
		{Name: "c_metadata", StorageClass: "StructuredDataDict", Dimensions: []string{"instrument", "visit"}},
		{Name: "calexp", StorageClass: "ExposureF", Dimensions: []string{"instrument", "visit"}},
	} {
		require.NoError(t, reg.RegisterDatasetType(ctx, dt))
	}

	for _, c := range []catalog.Collection{
		{Name: "run/1", Type: catalog.CollectionRun},
		{Name: "run/2", Type: catalog.CollectionRun},
		{Name: "tagged/best", Type: catalog.CollectionTagged},
		{Name: "defaults", Type: catalog.CollectionChained},
	} {
		require.NoError(t, reg.RegisterCollection(ctx, c))
	}
	require.NoError(t, reg.SetCollectionChain(ctx, "defaults", []string{"run/2", "run/1"}))

	fx := Fixture{Refs: make(map[string]catalog.DatasetRef)}
	add := func(datasetType, run string, visit int) catalog.DatasetRef {
		ref := catalog.DatasetRef{
			ID:          catalog.NewDatasetID(),
			DatasetType: datasetType,
			DataID:      catalog.DataID{"instrument": "HSC", "visit": visit},
			Run:         run,
		}
		fx.Refs[RefKey(datasetType, run, visit)] = ref
		return ref
	}

	require.NoError(t, reg.InsertDatasets(ctx, []catalog.DatasetRef{
		add("calexp", "run/1", 1),
		add("calexp", "run/1", 2),
		add("a_metadata", "run/1", 1),
	}))
	require.NoError(t, reg.InsertDatasets(ctx, []catalog.DatasetRef{
		add("calexp", "run/2", 1),
		add("b_other", "run/2", 1),
	}))
	require.NoError(t, reg.Associate(ctx, "tagged/best", []catalog.DatasetRef{
		fx.Refs[RefKey("calexp", "run/1", 2)],
	}))

	return fx
}

// RefKey builds a Fixture.Refs key.
func RefKey(datasetType, run string, visit int) string {
	return datasetType + "/" + run + "/" + strconv.Itoa(visit)
}

func refIDs(refs []catalog.DatasetRef) []catalog.DatasetID {
	ids := make([]catalog.DatasetID, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids
}

func datasetTypeNames(dts []catalog.DatasetType) []string {
	names := make([]string, 0, len(dts))
	for _, dt := range dts {
		names = append(names, dt.Name)
	}
	return names
}

func collectionNames(cs []catalog.Collection) []string {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.Name)
	}
	return names
}
