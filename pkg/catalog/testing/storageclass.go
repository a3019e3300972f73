package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *RegistryTestSuite) RunStorageClassUpdateTests(test *testing.T) {
	test.Run("UpdateStorageClass_Subset", suite.TestUpdateStorageClass_Subset)
	test.Run("UpdateStorageClass_UnknownNames", suite.TestUpdateStorageClass_UnknownNames)
	test.Run("UpdateStorageClass_Empty", suite.TestUpdateStorageClass_Empty)
	test.Run("UpdateStorageClass_SourceMismatch", suite.TestUpdateStorageClass_SourceMismatch)
}

// TestUpdateStorageClass_Subset verifies only the named rows change.
func (suite *RegistryTestSuite) TestUpdateStorageClass_Subset(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	count, err := reg.UpdateDatasetTypeStorageClass(ctx, []string{"a_metadata", "c_metadata"}, "StructuredDataDict", "Packages")
	require.NoError(test, err)
	assert.Equal(test, 2, count)

	for name, want := range map[string]string{
		"a_metadata": "Packages",
		"b_other":    "StructuredDataDict",
		"c_metadata": "Packages",
		"calexp":     "ExposureF",
	} {
		dt, err := reg.GetDatasetType(ctx, name)
		require.NoError(test, err)
		assert.Equal(test, want, dt.StorageClass, name)
	}
}

// TestUpdateStorageClass_UnknownNames verifies unknown names are not counted.
func (suite *RegistryTestSuite) TestUpdateStorageClass_UnknownNames(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	count, err := reg.UpdateDatasetTypeStorageClass(ctx, []string{"b_other", "missing", "b_other"}, "StructuredDataDict", "Packages")
	require.NoError(test, err)
	assert.Equal(test, 1, count)

	dt, err := reg.GetDatasetType(ctx, "b_other")
	require.NoError(test, err)
	assert.Equal(test, "Packages", dt.StorageClass)
}

// TestUpdateStorageClass_Empty verifies an empty name list is a no-op.
func (suite *RegistryTestSuite) TestUpdateStorageClass_Empty(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)

	count, err := reg.UpdateDatasetTypeStorageClass(context.Background(), nil, "StructuredDataDict", "Packages")
	require.NoError(test, err)
	assert.Zero(test, count)
}

// TestUpdateStorageClass_SourceMismatch verifies a named type that is no
// longer bound to the source class is not rebound.
func (suite *RegistryTestSuite) TestUpdateStorageClass_SourceMismatch(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	count, err := reg.UpdateDatasetTypeStorageClass(ctx, []string{"a_metadata", "calexp"}, "StructuredDataDict", "Packages")
	require.NoError(test, err)
	assert.Equal(test, 1, count)

	dt, err := reg.GetDatasetType(ctx, "calexp")
	require.NoError(test, err)
	assert.Equal(test, "ExposureF", dt.StorageClass)

	dt, err = reg.GetDatasetType(ctx, "a_metadata")
	require.NoError(test, err)
	assert.Equal(test, "Packages", dt.StorageClass)
}
