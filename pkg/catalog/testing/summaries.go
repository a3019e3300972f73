package testing

import (
	"context"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *RegistryTestSuite) RunSummaryTests(test *testing.T) {
	test.Run("Summary_MaintainedOnInsert", suite.TestSummary_MaintainedOnInsert)
	test.Run("Summary_ChainedUnion", suite.TestSummary_ChainedUnion)
	test.Run("Summary_RefreshRepairsDrift", suite.TestSummary_RefreshRepairsDrift)
}

// TestSummary_MaintainedOnInsert verifies inserts and associations update summaries.
func (suite *RegistryTestSuite) TestSummary_MaintainedOnInsert(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	tests := map[string][]string{
		"run/1":       {"a_metadata", "calexp"},
		"run/2":       {"b_other", "calexp"},
		"tagged/best": {"calexp"},
	}
	for name, want := range tests {
		summary, err := reg.GetCollectionSummary(ctx, name)
		require.NoError(test, err)
		assert.Equal(test, want, summary.Names(), name)
	}

	_, err := reg.GetCollectionSummary(ctx, "missing")
	assert.True(test, catalog.IsNotFound(err))
}

// TestSummary_ChainedUnion verifies chained summaries are the union of children.
func (suite *RegistryTestSuite) TestSummary_ChainedUnion(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)

	summary, err := reg.GetCollectionSummary(context.Background(), "defaults")
	require.NoError(test, err)
	assert.Equal(test, []string{"a_metadata", "b_other", "calexp"}, summary.Names())
}

// TestSummary_RefreshRepairsDrift verifies RefreshCollectionSummaries restores
// summaries to actual membership, both after removals and after direct
// summary writes (when the registry supports them).
func (suite *RegistryTestSuite) TestSummary_RefreshRepairsDrift(test *testing.T) {
	reg := suite.newRegistry(test)
	fx := Seed(test, reg)
	ctx := context.Background()

	require.NoError(test, reg.RemoveDatasets(ctx, []catalog.DatasetRef{fx.Refs[RefKey("a_metadata", "run/1", 1)]}))

	if writer, ok := reg.(catalog.SummaryWriter); ok {
		require.NoError(test, writer.SetCollectionSummary(ctx, "run/2", catalog.NewCollectionSummary("calexp", "c_metadata")))

		stale, err := reg.GetCollectionSummary(ctx, "run/2")
		require.NoError(test, err)
		assert.Equal(test, []string{"c_metadata", "calexp"}, stale.Names())

		err = writer.SetCollectionSummary(ctx, "defaults", catalog.NewCollectionSummary())
		assert.True(test, catalog.IsInvalidArgument(err))
	}

	require.NoError(test, reg.RefreshCollectionSummaries(ctx))

	for name, want := range map[string][]string{
		"run/1":       {"calexp"},
		"run/2":       {"b_other", "calexp"},
		"tagged/best": {"calexp"},
	} {
		summary, err := reg.GetCollectionSummary(ctx, name)
		require.NoError(test, err)
		assert.Equal(test, want, summary.Names(), name)
	}
}
