// Package testing provides a conformance suite for artifact.Store
// implementations.
package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/datastore/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite tests the artifact.Store contract, not implementation
// details, so it runs unchanged against the filesystem, memory and S3 stores.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) artifact.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func(t *testing.T) artifact.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ReadWrite", suite.RunReadWriteTests)
	t.Run("Delete", suite.RunDeleteTests)
	t.Run("Batch", suite.RunBatchTests)
}

func testContext() context.Context {
	return context.Background()
}

func (suite *StoreTestSuite) newStore(t *testing.T) artifact.Store {
	t.Helper()
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// RunReadWriteTests covers Write, Read, Size, Exists and URI.
func (suite *StoreTestSuite) RunReadWriteTests(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		store := suite.newStore(t)
		data := []byte("pixel data")

		mustWrite(t, store, "run/1/calexp/visit_1.fits", data)

		assert.Equal(t, data, mustRead(t, store, "run/1/calexp/visit_1.fits"))

		size, err := store.Size(testContext(), "run/1/calexp/visit_1.fits")
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), size)

		assertExists(t, store, "run/1/calexp/visit_1.fits", true)
	})

	t.Run("Overwrite", func(t *testing.T) {
		store := suite.newStore(t)
		mustWrite(t, store, "a.json", []byte("first version"))
		mustWrite(t, store, "a.json", []byte("v2"))
		assert.Equal(t, []byte("v2"), mustRead(t, store, "a.json"))
	})

	t.Run("EmptyArtifact", func(t *testing.T) {
		store := suite.newStore(t)
		mustWrite(t, store, "empty.txt", nil)
		assert.Empty(t, mustRead(t, store, "empty.txt"))
		assertExists(t, store, "empty.txt", true)
	})

	t.Run("ReadMissing", func(t *testing.T) {
		store := suite.newStore(t)

		_, err := store.Read(testContext(), "missing.fits")
		assert.ErrorIs(t, err, artifact.ErrArtifactNotFound)

		_, err = store.Size(testContext(), "missing.fits")
		assert.ErrorIs(t, err, artifact.ErrArtifactNotFound)

		assertExists(t, store, "missing.fits", false)
	})

	t.Run("URIContainsPath", func(t *testing.T) {
		store := suite.newStore(t)
		uri := store.URI("run/1/a.json")
		assert.True(t, strings.HasSuffix(uri, "run/1/a.json"), uri)
		assert.Contains(t, uri, "://")

		p, err := store.Path(uri)
		require.NoError(t, err)
		assert.Equal(t, "run/1/a.json", p)

		_, err = store.Path("ftp://elsewhere/run/1/a.json")
		assert.Error(t, err)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		store := suite.newStore(t)
		ctx, cancel := context.WithCancel(testContext())
		cancel()

		err := store.Write(ctx, "x", bytes.NewReader([]byte("x")))
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	})
}

// RunDeleteTests covers Delete and List.
func (suite *StoreTestSuite) RunDeleteTests(t *testing.T) {
	t.Run("DeleteExisting", func(t *testing.T) {
		store := suite.newStore(t)
		mustWrite(t, store, "dir/a", []byte("a"))

		require.NoError(t, store.Delete(testContext(), "dir/a"))
		assertExists(t, store, "dir/a", false)
	})

	t.Run("DeleteMissingIsNoop", func(t *testing.T) {
		store := suite.newStore(t)
		assert.NoError(t, store.Delete(testContext(), "never/written"))
	})

	t.Run("ListSorted", func(t *testing.T) {
		store := suite.newStore(t)
		for _, p := range []string{"run/2/b", "run/1/a", "run/1/c"} {
			mustWrite(t, store, p, []byte(p))
		}

		paths, err := store.List(testContext())
		require.NoError(t, err)
		assert.Equal(t, []string{"run/1/a", "run/1/c", "run/2/b"}, paths)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		store := suite.newStore(t)
		paths, err := store.List(testContext())
		require.NoError(t, err)
		assert.Empty(t, paths)
	})
}

// RunBatchTests covers DeleteBatch.
func (suite *StoreTestSuite) RunBatchTests(t *testing.T) {
	t.Run("DeleteBatch", func(t *testing.T) {
		store := suite.newStore(t)

		var paths []string
		for i := range 25 {
			p := fmt.Sprintf("batch/%02d.dat", i)
			mustWrite(t, store, p, []byte{byte(i)})
			paths = append(paths, p)
		}
		mustWrite(t, store, "keep/me.dat", []byte("keep"))

		failures, err := store.DeleteBatch(testContext(), append(paths, "batch/missing.dat"))
		require.NoError(t, err)
		assert.Empty(t, failures, "missing artifacts count as deleted")

		remaining, err := store.List(testContext())
		require.NoError(t, err)
		assert.Equal(t, []string{"keep/me.dat"}, remaining)
	})

	t.Run("DeleteBatchEmpty", func(t *testing.T) {
		store := suite.newStore(t)
		failures, err := store.DeleteBatch(testContext(), nil)
		require.NoError(t, err)
		assert.Empty(t, failures)
	})
}

func mustWrite(t *testing.T, store artifact.Store, path string, data []byte) {
	t.Helper()
	require.NoError(t, store.Write(testContext(), path, bytes.NewReader(data)), "Write should succeed")
}

func mustRead(t *testing.T, store artifact.Store, path string) []byte {
	t.Helper()
	r, err := store.Read(testContext(), path)
	require.NoError(t, err, "Read should succeed")
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func assertExists(t *testing.T, store artifact.Store, path string, expected bool) {
	t.Helper()
	exists, err := store.Exists(testContext(), path)
	require.NoError(t, err)
	assert.Equal(t, expected, exists, "existence of %s", path)
}
