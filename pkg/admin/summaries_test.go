package admin

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshCollectionSummary_Consistent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	var out bytes.Buffer
	drifts, err := RefreshCollectionSummary(ctx, repo, SummaryOptions{Out: &out})
	require.NoError(t, err)

	require.Len(t, drifts, 4)
	for _, d := range drifts {
		assert.True(t, d.Consistent(), d.Collection.Name)
	}
	assert.Equal(t,
		"Summary for CHAINED collection defaults is consistent with 3 dataset types.\n"+
			"Summary for RUN collection run/1 is consistent with 2 dataset types.\n"+
			"Summary for RUN collection run/2 is consistent with 2 dataset types.\n"+
			"Summary for TAGGED collection tagged/best is consistent with 1 dataset types.\n",
		out.String())
}

func TestRefreshCollectionSummary_Drift(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	// run/1 holds calexp and a_metadata.
	require.NoError(t, repo.reg.SetCollectionSummary(ctx, "run/1", catalog.NewCollectionSummary("a_metadata", "b_other")))

	var out bytes.Buffer
	drifts, err := RefreshCollectionSummary(ctx, repo, SummaryOptions{Out: &out})
	require.NoError(t, err)

	var run1 SummaryDrift
	for _, d := range drifts {
		if d.Collection.Name == "run/1" {
			run1 = d
		}
	}
	assert.Equal(t, []string{"b_other"}, run1.Extra)
	assert.Equal(t, []string{"calexp"}, run1.Missing)
	assert.False(t, run1.Consistent())

	text := out.String()
	assert.Contains(t, text, "Summary for RUN collection run/1 contains 1 extra dataset types.\n")
	assert.Contains(t, text, "Summary for RUN collection run/1 contains 1 missing dataset types.\n")
	assert.NotContains(t, text, "run/1 is consistent")

	// The audit is read-only.
	summary, err := repo.reg.GetCollectionSummary(ctx, "run/1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_metadata", "b_other"}, summary.Names())
}

func TestRefreshCollectionSummary_TaggedOnly(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.reg.SetCollectionSummary(ctx, "run/1", catalog.NewCollectionSummary()))

	var out bytes.Buffer
	drifts, err := RefreshCollectionSummary(ctx, repo, SummaryOptions{Tagged: true, Out: &out})
	require.NoError(t, err)

	require.Len(t, drifts, 1)
	assert.Equal(t, "tagged/best", drifts[0].Collection.Name)
	assert.Equal(t, "Summary for TAGGED collection tagged/best is consistent with 1 dataset types.\n", out.String())
}

func TestRefreshCollectionSummary_Update(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.reg.SetCollectionSummary(ctx, "run/1", catalog.NewCollectionSummary("b_other")))

	var out bytes.Buffer
	drifts, err := RefreshCollectionSummary(ctx, repo, SummaryOptions{Update: true, Tagged: true, Out: &out})
	require.NoError(t, err)
	assert.Nil(t, drifts)
	assert.Equal(t, "Collection summaries were refreshed.\n", out.String())

	summary, err := repo.reg.GetCollectionSummary(ctx, "run/1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_metadata", "calexp"}, summary.Names(), "tagged flag is ignored in update mode")

	drifts, err = RefreshCollectionSummary(ctx, repo, SummaryOptions{})
	require.NoError(t, err)
	for _, d := range drifts {
		assert.True(t, d.Consistent(), d.Collection.Name)
	}
}

type failingAuditor struct{ err error }

func (a failingAuditor) Audit(context.Context, catalog.Registry, catalog.Collection) (SummaryDrift, error) {
	return SummaryDrift{}, a.err
}

func TestRefreshCollectionSummary_AuditorError(t *testing.T) {
	repo := newTestRepo(t)
	boom := errors.New("boom")

	_, err := RefreshCollectionSummary(context.Background(), repo, SummaryOptions{Auditor: failingAuditor{err: boom}})
	assert.ErrorIs(t, err, boom)
}
