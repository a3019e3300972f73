package memory

import (
	"context"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/datastore/artifact"
	artifacttesting "github.com/marmos91/catalogadmin/pkg/datastore/artifact/testing"
	"github.com/stretchr/testify/assert"
)

func TestMemoryArtifactStore(t *testing.T) {
	suite := &artifacttesting.StoreTestSuite{
		NewStore: func(t *testing.T) artifact.Store {
			return NewMemoryArtifactStore("test")
		},
	}
	suite.Run(t)
}

func TestMemoryArtifactStore_Closed(t *testing.T) {
	store := NewMemoryArtifactStore("")
	assert.Equal(t, "mem://artifacts/a/b", store.URI("a/b"))

	assert.NoError(t, store.Close())
	_, err := store.List(context.Background())
	assert.Error(t, err)
}
