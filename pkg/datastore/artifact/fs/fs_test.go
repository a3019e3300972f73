package fs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/datastore/artifact"
	artifacttesting "github.com/marmos91/catalogadmin/pkg/datastore/artifact/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSArtifactStore(t *testing.T) {
	suite := &artifacttesting.StoreTestSuite{
		NewStore: func(t *testing.T) artifact.Store {
			store, err := NewFSArtifactStore(context.Background(), t.TempDir())
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestFSArtifactStore_Layout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFSArtifactStore(ctx, root)
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "run/1/a.json", bytes.NewReader([]byte("{}"))))

	data, err := os.ReadFile(filepath.Join(root, "run", "1", "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(root, "run/1/a.json")), store.URI("run/1/a.json"))
}

func TestFSArtifactStore_PathsStayInsideRoot(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "store")
	store, err := NewFSArtifactStore(ctx, root)
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "../escape.txt", bytes.NewReader([]byte("x"))))
	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err, "parent references are resolved inside the root")

	assert.Error(t, store.Write(ctx, "/abs.txt", bytes.NewReader(nil)))
	assert.Error(t, store.Write(ctx, "", bytes.NewReader(nil)))
}

func TestFSArtifactStore_ListSkipsTemporaryFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFSArtifactStore(ctx, root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, tempPrefix+"123"), []byte("partial"), 0o644))
	require.NoError(t, store.Write(ctx, "done.txt", bytes.NewReader([]byte("ok"))))

	paths, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"done.txt"}, paths)
}
