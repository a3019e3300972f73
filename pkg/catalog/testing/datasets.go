package testing

import (
	"context"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *RegistryTestSuite) RunDatasetTests(test *testing.T) {
	test.Run("QueryDatasets_ByCollection", suite.TestQueryDatasets_ByCollection)
	test.Run("QueryDatasets_AllCollections", suite.TestQueryDatasets_AllCollections)
	test.Run("QueryDatasets_FindFirst", suite.TestQueryDatasets_FindFirst)
	test.Run("QueryDatasets_Where", suite.TestQueryDatasets_Where)
	test.Run("QueryDatasets_Limit", suite.TestQueryDatasets_Limit)
	test.Run("QueryDatasets_Invalid", suite.TestQueryDatasets_Invalid)
	test.Run("InsertDatasets_Validation", suite.TestInsertDatasets_Validation)
	test.Run("Associate_Validation", suite.TestAssociate_Validation)
	test.Run("RemoveDatasets", suite.TestRemoveDatasets)
}

// TestQueryDatasets_ByCollection verifies run, tagged and chained membership.
func (suite *RegistryTestSuite) TestQueryDatasets_ByCollection(test *testing.T) {
	reg := suite.newRegistry(test)
	fx := Seed(test, reg)
	ctx := context.Background()

	tests := []struct {
		name        string
		datasetType string
		collections []string
		want        []string
	}{
		{
			name:        "run",
			datasetType: "calexp",
			collections: []string{"run/1"},
			want:        []string{RefKey("calexp", "run/1", 1), RefKey("calexp", "run/1", 2)},
		},
		{
			name:        "tagged",
			datasetType: "...",
			collections: []string{"tagged/best"},
			want:        []string{RefKey("calexp", "run/1", 2)},
		},
		{
			name:        "chained",
			datasetType: "calexp",
			collections: []string{"defaults"},
			want: []string{
				RefKey("calexp", "run/1", 1),
				RefKey("calexp", "run/1", 2),
				RefKey("calexp", "run/2", 1),
			},
		},
		{
			name:        "glob",
			datasetType: "*_metadata",
			collections: []string{"run/1", "run/2"},
			want:        []string{RefKey("a_metadata", "run/1", 1)},
		},
	}

	for _, tt := range tests {
		test.Run(tt.name, func(t *testing.T) {
			got, err := reg.QueryDatasets(ctx, catalog.DatasetQuery{
				DatasetType: tt.datasetType,
				Collections: tt.collections,
			})
			require.NoError(t, err)

			want := make([]catalog.DatasetID, 0, len(tt.want))
			for _, k := range tt.want {
				want = append(want, fx.Refs[k].ID)
			}
			assert.ElementsMatch(t, want, refIDs(got))
		})
	}

	_, err := reg.QueryDatasets(ctx, catalog.DatasetQuery{DatasetType: "calexp", Collections: []string{"missing"}})
	assert.True(test, catalog.IsNotFound(err))
}

// TestQueryDatasets_AllCollections verifies an empty search path covers every dataset once.
func (suite *RegistryTestSuite) TestQueryDatasets_AllCollections(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)

	got, err := reg.QueryDatasets(context.Background(), catalog.DatasetQuery{DatasetType: "calexp"})
	require.NoError(test, err)
	assert.Len(test, got, 3)

	for _, ref := range got {
		assert.Equal(test, "calexp", ref.DatasetType)
		assert.Equal(test, "HSC", ref.DataID["instrument"])
	}
}

// TestQueryDatasets_FindFirst verifies search path precedence.
func (suite *RegistryTestSuite) TestQueryDatasets_FindFirst(test *testing.T) {
	reg := suite.newRegistry(test)
	fx := Seed(test, reg)

	got, err := reg.QueryDatasets(context.Background(), catalog.DatasetQuery{
		DatasetType: "calexp",
		Collections: []string{"defaults"},
		FindFirst:   true,
	})
	require.NoError(test, err)
	assert.ElementsMatch(test, []catalog.DatasetID{
		fx.Refs[RefKey("calexp", "run/2", 1)].ID,
		fx.Refs[RefKey("calexp", "run/1", 2)].ID,
	}, refIDs(got))
}

// TestQueryDatasets_Where verifies CEL filtering on data ID and run.
func (suite *RegistryTestSuite) TestQueryDatasets_Where(test *testing.T) {
	reg := suite.newRegistry(test)
	fx := Seed(test, reg)
	ctx := context.Background()

	got, err := reg.QueryDatasets(ctx, catalog.DatasetQuery{
		DatasetType: "calexp",
		Collections: []string{"defaults"},
		Where:       `data_id.visit == 2`,
	})
	require.NoError(test, err)
	assert.Equal(test, []catalog.DatasetID{fx.Refs[RefKey("calexp", "run/1", 2)].ID}, refIDs(got))

	got, err = reg.QueryDatasets(ctx, catalog.DatasetQuery{
		DatasetType: "...",
		Where:       `run == "run/2" && dataset_type != "calexp"`,
	})
	require.NoError(test, err)
	assert.Equal(test, []catalog.DatasetID{fx.Refs[RefKey("b_other", "run/2", 1)].ID}, refIDs(got))
}

// TestQueryDatasets_Limit verifies the hard cap.
func (suite *RegistryTestSuite) TestQueryDatasets_Limit(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	got, err := reg.QueryDatasets(ctx, catalog.DatasetQuery{DatasetType: "...", Limit: 2})
	require.NoError(test, err)
	assert.Len(test, got, 2)

	got, err = reg.QueryDatasets(ctx, catalog.DatasetQuery{DatasetType: "...", Limit: 100})
	require.NoError(test, err)
	assert.Len(test, got, 5)
}

// TestQueryDatasets_Invalid verifies query validation happens before any lookup.
func (suite *RegistryTestSuite) TestQueryDatasets_Invalid(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	for name, q := range map[string]catalog.DatasetQuery{
		"negative_limit":   {DatasetType: "calexp", Limit: -1},
		"find_first_empty": {DatasetType: "calexp", FindFirst: true},
		"bad_where":        {DatasetType: "calexp", Where: "visit >"},
		"bad_pattern":      {DatasetType: "calexp["},
	} {
		_, err := reg.QueryDatasets(ctx, q)
		assert.True(test, catalog.IsInvalidArgument(err), name)
	}
}

// TestInsertDatasets_Validation verifies batches are rejected as a whole.
func (suite *RegistryTestSuite) TestInsertDatasets_Validation(test *testing.T) {
	reg := suite.newRegistry(test)
	Seed(test, reg)
	ctx := context.Background()

	good := catalog.DatasetRef{ID: catalog.NewDatasetID(), DatasetType: "calexp", DataID: catalog.DataID{"visit": 9}, Run: "run/1"}

	err := reg.InsertDatasets(ctx, []catalog.DatasetRef{good, {
		ID: catalog.NewDatasetID(), DatasetType: "unknown", Run: "run/1",
	}})
	assert.True(test, catalog.IsNotFound(err))

	err = reg.InsertDatasets(ctx, []catalog.DatasetRef{{
		ID: catalog.NewDatasetID(), DatasetType: "calexp", Run: "tagged/best",
	}})
	assert.True(test, catalog.IsInvalidArgument(err))

	got, err := reg.QueryDatasets(ctx, catalog.DatasetQuery{DatasetType: "calexp", Where: "data_id.visit == 9"})
	require.NoError(test, err)
	assert.Empty(test, got)

	require.NoError(test, reg.InsertDatasets(ctx, []catalog.DatasetRef{good}))
	err = reg.InsertDatasets(ctx, []catalog.DatasetRef{good})
	assert.True(test, catalog.IsAlreadyExists(err))
}

// TestAssociate_Validation verifies association targets and datasets are checked.
func (suite *RegistryTestSuite) TestAssociate_Validation(test *testing.T) {
	reg := suite.newRegistry(test)
	fx := Seed(test, reg)
	ctx := context.Background()

	ref := fx.Refs[RefKey("calexp", "run/1", 1)]

	err := reg.Associate(ctx, "run/2", []catalog.DatasetRef{ref})
	assert.True(test, catalog.IsInvalidArgument(err))

	err = reg.Associate(ctx, "tagged/best", []catalog.DatasetRef{{ID: catalog.NewDatasetID()}})
	assert.True(test, catalog.IsNotFound(err))

	require.NoError(test, reg.Associate(ctx, "tagged/best", []catalog.DatasetRef{ref}))
	require.NoError(test, reg.Associate(ctx, "tagged/best", []catalog.DatasetRef{ref}))

	got, err := reg.QueryDatasets(ctx, catalog.DatasetQuery{DatasetType: "calexp", Collections: []string{"tagged/best"}})
	require.NoError(test, err)
	assert.Len(test, got, 2)
}

// TestRemoveDatasets verifies removal from runs and tags.
func (suite *RegistryTestSuite) TestRemoveDatasets(test *testing.T) {
	reg := suite.newRegistry(test)
	fx := Seed(test, reg)
	ctx := context.Background()

	tagged := fx.Refs[RefKey("calexp", "run/1", 2)]
	require.NoError(test, reg.RemoveDatasets(ctx, []catalog.DatasetRef{tagged}))

	got, err := reg.QueryDatasets(ctx, catalog.DatasetQuery{DatasetType: "...", Collections: []string{"tagged/best"}})
	require.NoError(test, err)
	assert.Empty(test, got)

	got, err = reg.QueryDatasets(ctx, catalog.DatasetQuery{DatasetType: "calexp", Collections: []string{"run/1"}})
	require.NoError(test, err)
	assert.Len(test, got, 1)

	// Removal does not touch cached summaries.
	summary, err := reg.GetCollectionSummary(ctx, "tagged/best")
	require.NoError(test, err)
	assert.True(test, summary.Has("calexp"))
}
