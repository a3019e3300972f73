package testing

import (
	"context"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *RegistryTestSuite) RunCollectionTests(test *testing.T) {
	test.Run("QueryCollections_Types", suite.TestQueryCollections_Types)
	test.Run("QueryCollections_IncludeChains", suite.TestQueryCollections_IncludeChains)
	test.Run("GetCollection", suite.TestGetCollection)
	test.Run("SetCollectionChain_Errors", suite.TestSetCollectionChain_Errors)
	test.Run("RegisterCollection_Conflict", suite.TestRegisterCollection_Conflict)
}

// TestQueryCollections_Types verifies type filtering and name ordering.
func (suite *RegistryTestSuite) TestQueryCollections_Types(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	all, err := reg.QueryCollections(ctx, nil, false)
	require.NoError(test, err)
	assert.Equal(test, []string{"defaults", "run/1", "run/2", "tagged/best"}, collectionNames(all))

	tagged, err := reg.QueryCollections(ctx, []catalog.CollectionType{catalog.CollectionTagged}, false)
	require.NoError(test, err)
	require.Len(test, tagged, 1)
	assert.Equal(test, catalog.Collection{Name: "tagged/best", Type: catalog.CollectionTagged}, tagged[0])

	runs, err := reg.QueryCollections(ctx, []catalog.CollectionType{catalog.CollectionRun, catalog.CollectionCalibration}, false)
	require.NoError(test, err)
	assert.Equal(test, []string{"run/1", "run/2"}, collectionNames(runs))
}

// TestQueryCollections_IncludeChains verifies chain children are added on request.
func (suite *RegistryTestSuite) TestQueryCollections_IncludeChains(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	chained := []catalog.CollectionType{catalog.CollectionChained}

	without, err := reg.QueryCollections(ctx, chained, false)
	require.NoError(test, err)
	assert.Equal(test, []string{"defaults"}, collectionNames(without))

	with, err := reg.QueryCollections(ctx, chained, true)
	require.NoError(test, err)
	assert.Equal(test, []string{"defaults", "run/1", "run/2"}, collectionNames(with))
}

// TestGetCollection verifies lookup and not-found handling.
func (suite *RegistryTestSuite) TestGetCollection(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	c, err := reg.GetCollection(ctx, "defaults")
	require.NoError(test, err)
	assert.Equal(test, catalog.CollectionChained, c.Type)

	_, err = reg.GetCollection(ctx, "missing")
	assert.True(test, catalog.IsNotFound(err))
}

// TestSetCollectionChain_Errors verifies chain validation.
func (suite *RegistryTestSuite) TestSetCollectionChain_Errors(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	err := reg.SetCollectionChain(ctx, "run/1", []string{"run/2"})
	assert.True(test, catalog.IsInvalidArgument(err), "non-chained parent")

	err = reg.SetCollectionChain(ctx, "defaults", []string{"run/1", "missing"})
	assert.True(test, catalog.IsNotFound(err), "unknown child")

	err = reg.SetCollectionChain(ctx, "defaults", []string{"defaults"})
	assert.True(test, catalog.IsInvalidArgument(err), "self reference")

	// Failed updates leave the chain intact.
	refs, err := reg.QueryDatasets(ctx, catalog.DatasetQuery{DatasetType: "b_other", Collections: []string{"defaults"}})
	require.NoError(test, err)
	assert.Len(test, refs, 1)
}

// TestRegisterCollection_Conflict verifies a name cannot change type.
func (suite *RegistryTestSuite) TestRegisterCollection_Conflict(test *testing.T) {
	reg := suite.newRegistry(test)
	ctx := context.Background()

	require.NoError(test, reg.RegisterCollection(ctx, catalog.Collection{Name: "c", Type: catalog.CollectionRun}))
	require.NoError(test, reg.RegisterCollection(ctx, catalog.Collection{Name: "c", Type: catalog.CollectionRun}))

	err := reg.RegisterCollection(ctx, catalog.Collection{Name: "c", Type: catalog.CollectionTagged})
	var storeErr *catalog.StoreError
	require.ErrorAs(test, err, &storeErr)
	assert.Equal(test, catalog.ErrConflict, storeErr.Code)
}
