package testing

import (
	"context"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *RegistryTestSuite) RunDatasetTypeTests(test *testing.T) {
	test.Run("QueryDatasetTypes_Patterns", suite.TestQueryDatasetTypes_Patterns)
	test.Run("QueryDatasetTypes_BadPattern", suite.TestQueryDatasetTypes_BadPattern)
	test.Run("GetDatasetType_NotFound", suite.TestGetDatasetType_NotFound)
	test.Run("RegisterDatasetType_Idempotent", suite.TestRegisterDatasetType_Idempotent)
	test.Run("RegisterDatasetType_Conflict", suite.TestRegisterDatasetType_Conflict)
}

// TestQueryDatasetTypes_Patterns verifies glob, literal and wildcard matching.
func (suite *RegistryTestSuite) TestQueryDatasetTypes_Patterns(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{name: "all_implicit", want: []string{"a_metadata", "b_other", "c_metadata", "calexp"}},
		{name: "all_explicit", patterns: []string{"..."}, want: []string{"a_metadata", "b_other", "c_metadata", "calexp"}},
		{name: "glob", patterns: []string{"*_metadata"}, want: []string{"a_metadata", "c_metadata"}},
		{name: "literal", patterns: []string{"calexp"}, want: []string{"calexp"}},
		{name: "union", patterns: []string{"calexp", "b_*"}, want: []string{"b_other", "calexp"}},
		{name: "no_match", patterns: []string{"missing"}, want: []string{}},
	}

	for _, tt := range tests {
		test.Run(tt.name, func(t *testing.T) {
			got, err := reg.QueryDatasetTypes(ctx, tt.patterns...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, datasetTypeNames(got))
		})
	}

	dt, err := reg.GetDatasetType(ctx, "calexp")
	require.NoError(test, err)
	assert.Equal(test, "ExposureF", dt.StorageClass)
	assert.Equal(test, []string{"instrument", "visit"}, dt.Dimensions)
}

// TestQueryDatasetTypes_BadPattern verifies malformed globs are rejected.
func (suite *RegistryTestSuite) TestQueryDatasetTypes_BadPattern(test *testing.T) {
	reg := suite.newRegistry(test)

	_, err := reg.QueryDatasetTypes(context.Background(), "calexp[")
	require.Error(test, err)
	assert.True(test, catalog.IsInvalidArgument(err))
}

// TestGetDatasetType_NotFound verifies unknown names return ErrNotFound.
func (suite *RegistryTestSuite) TestGetDatasetType_NotFound(test *testing.T) {
	reg := suite.newRegistry(test)

	_, err := reg.GetDatasetType(context.Background(), "nope")
	require.Error(test, err)
	assert.True(test, catalog.IsNotFound(err))
}

// TestRegisterDatasetType_Idempotent verifies identical re-registration is a no-op.
func (suite *RegistryTestSuite) TestRegisterDatasetType_Idempotent(test *testing.T) {
	reg := suite.newRegistry(test)
	ctx := context.Background()

	dt := catalog.DatasetType{Name: "raw", StorageClass: "Exposure", Dimensions: []string{"exposure"}}
	require.NoError(test, reg.RegisterDatasetType(ctx, dt))
	require.NoError(test, reg.RegisterDatasetType(ctx, dt))

	all, err := reg.QueryDatasetTypes(ctx)
	require.NoError(test, err)
	assert.Len(test, all, 1)
}

// TestRegisterDatasetType_Conflict verifies a conflicting definition is rejected.
func (suite *RegistryTestSuite) TestRegisterDatasetType_Conflict(test *testing.T) {
	reg := suite.newRegistry(test)
	ctx := context.Background()

	require.NoError(test, reg.RegisterDatasetType(ctx, catalog.DatasetType{Name: "raw", StorageClass: "Exposure"}))
	err := reg.RegisterDatasetType(ctx, catalog.DatasetType{Name: "raw", StorageClass: "ExposureF"})
	require.Error(test, err)

	var storeErr *catalog.StoreError
	require.ErrorAs(test, err, &storeErr)
	assert.Equal(test, catalog.ErrConflict, storeErr.Code)
}
