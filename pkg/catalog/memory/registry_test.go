package memory

import (
	"context"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	catalogtesting "github.com/marmos91/catalogadmin/pkg/catalog/testing"
	"github.com/stretchr/testify/assert"
)

// TestMemoryRegistry runs the registry conformance suite against MemoryRegistry.
func TestMemoryRegistry(t *testing.T) {
	suite := &catalogtesting.RegistryTestSuite{
		NewRegistry: func(t *testing.T) catalog.WritableRegistry {
			return NewMemoryRegistry()
		},
	}

	suite.Run(t)
}

func TestMemoryRegistry_Closed(t *testing.T) {
	reg := NewMemoryRegistry()
	assert.NoError(t, reg.Close())

	_, err := reg.QueryDatasetTypes(context.Background())
	assert.Error(t, err)
}
