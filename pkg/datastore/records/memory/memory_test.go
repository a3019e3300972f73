package memory

import (
	"context"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/datastore"
	recordstesting "github.com/marmos91/catalogadmin/pkg/datastore/records/testing"
	"github.com/stretchr/testify/assert"
)

func TestMemoryRecordStore(t *testing.T) {
	suite := &recordstesting.RecordStoreTestSuite{
		NewStore: func(t *testing.T) datastore.RecordStore {
			return NewMemoryRecordStore()
		},
	}
	suite.Run(t)
}

func TestMemoryRecordStore_Closed(t *testing.T) {
	store := NewMemoryRecordStore()
	assert.NoError(t, store.Close())

	_, err := store.ListTrash(context.Background())
	assert.Error(t, err)
}
