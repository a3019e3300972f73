package admin

import (
	"bytes"
	"context"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/datastore"
	"github.com/marmos91/catalogadmin/pkg/datastore/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trashTwo moves two datasets to the trash and returns their artifact URIs.
func trashTwo(t *testing.T, repo *testRepo) []string {
	t.Helper()
	ctx := context.Background()

	refs := []catalog.DatasetRef{
		repo.ref("calexp", "run/1", 1),
		repo.ref("b_other", "run/2", 1),
	}
	uris, err := repo.ds.GetManyURIs(ctx, refs)
	require.NoError(t, err)
	require.NoError(t, repo.ds.Trash(ctx, refs))

	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, uris[ref.ID].Primary)
	}
	return out
}

func artifactExists(t *testing.T, repo *testRepo, ref catalog.DatasetRef) bool {
	t.Helper()
	ok, err := repo.ds.(*file.FileDatastore).Artifacts().Exists(context.Background(), file.ArtifactPath(ref))
	require.NoError(t, err)
	return ok
}

func TestEmptyTrash_DryRun(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	uris := trashTwo(t, repo)

	var out bytes.Buffer
	report, err := EmptyTrash(ctx, repo, TrashOptions{DryRun: true, Verbose: true, Out: &out})
	require.NoError(t, err)

	assert.True(t, report.Supported)
	assert.ElementsMatch(t, uris, report.Removed)
	assert.Contains(t, out.String(), "Removed the following:\n")
	for _, uri := range uris {
		assert.Contains(t, out.String(), uri+"\n")
	}

	assert.True(t, artifactExists(t, repo, repo.ref("calexp", "run/1", 1)), "dry run leaves artifacts")

	again, err := EmptyTrash(ctx, repo, TrashOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, report.Removed, again.Removed, "dry run leaves the trash untouched")
}

func TestEmptyTrash_Removes(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	uris := trashTwo(t, repo)

	dry, err := EmptyTrash(ctx, repo, TrashOptions{DryRun: true})
	require.NoError(t, err)

	var out bytes.Buffer
	report, err := EmptyTrash(ctx, repo, TrashOptions{Out: &out})
	require.NoError(t, err)

	assert.Equal(t, dry.Removed, report.Removed, "a real run removes what the dry run reported")
	assert.ElementsMatch(t, uris, report.Removed)
	assert.Empty(t, out.String(), "quiet without verbose")

	assert.False(t, artifactExists(t, repo, repo.ref("calexp", "run/1", 1)))
	assert.False(t, artifactExists(t, repo, repo.ref("b_other", "run/2", 1)))
	assert.True(t, artifactExists(t, repo, repo.ref("calexp", "run/1", 2)))

	again, err := EmptyTrash(ctx, repo, TrashOptions{})
	require.NoError(t, err)
	assert.Empty(t, again.Removed)
}

// plainDatastore hides the TrashEmptier capability.
type plainDatastore struct {
	datastore.Datastore
}

func TestEmptyTrash_Unsupported(t *testing.T) {
	repo := newTestRepo(t)
	repo.ds = plainDatastore{Datastore: repo.ds}

	var out bytes.Buffer
	report, err := EmptyTrash(context.Background(), repo, TrashOptions{Out: &out})
	require.NoError(t, err)
	assert.False(t, report.Supported)
	assert.Equal(t, "Repository does not have a datastore that can support trash emptying\n", out.String())
}
