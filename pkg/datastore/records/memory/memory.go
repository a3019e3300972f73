// Package memory implements an in-memory datastore.RecordStore.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/datastore"
)

// MemoryRecordStore keeps stored records and the trash ledger in maps.
//
// Thread Safety:
// A single read/write mutex guards both maps, so every method is atomic.
type MemoryRecordStore struct {
	mu     sync.RWMutex
	live   map[catalog.DatasetID]map[string]datastore.StoredFileInfo
	trash  map[string]datastore.StoredFileInfo
	closed bool
}

// NewMemoryRecordStore creates an empty store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		live:  make(map[catalog.DatasetID]map[string]datastore.StoredFileInfo),
		trash: make(map[string]datastore.StoredFileInfo),
	}
}

func (s *MemoryRecordStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return fmt.Errorf("record store is closed")
	}
	return nil
}

// GetRecords implements datastore.RecordStore.
func (s *MemoryRecordStore) GetRecords(ctx context.Context, ids []catalog.DatasetID) (map[catalog.DatasetID][]datastore.StoredFileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := make(map[catalog.DatasetID][]datastore.StoredFileInfo, len(ids))
	for _, id := range ids {
		components, ok := s.live[id]
		if !ok {
			continue
		}
		out[id] = sortedInfos(components)
	}
	return out, nil
}

// PutRecords implements datastore.RecordStore.
func (s *MemoryRecordStore) PutRecords(ctx context.Context, infos []datastore.StoredFileInfo, mode datastore.InsertMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}

	if mode == datastore.InsertModeInsert {
		seen := make(map[string]struct{}, len(infos))
		for _, info := range infos {
			if _, dup := seen[info.Key()]; dup {
				return fmt.Errorf("%w: %s", datastore.ErrRecordExists, info.Key())
			}
			seen[info.Key()] = struct{}{}
			if _, ok := s.live[info.DatasetID][info.Component]; ok {
				return fmt.Errorf("%w: %s", datastore.ErrRecordExists, info.Key())
			}
		}
	}

	for _, info := range infos {
		components, ok := s.live[info.DatasetID]
		if !ok {
			components = make(map[string]datastore.StoredFileInfo)
			s.live[info.DatasetID] = components
		}
		components[info.Component] = info
	}
	return nil
}

// TrashRecords implements datastore.RecordStore.
func (s *MemoryRecordStore) TrashRecords(ctx context.Context, ids []catalog.DatasetID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return 0, err
	}

	moved := 0
	for _, id := range ids {
		for _, info := range s.live[id] {
			s.trash[info.Key()] = info
			moved++
		}
		delete(s.live, id)
	}
	return moved, nil
}

// ListTrash implements datastore.RecordStore.
func (s *MemoryRecordStore) ListTrash(ctx context.Context) ([]datastore.StoredFileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return sortedInfos(s.trash), nil
}

// DropTrash implements datastore.RecordStore.
func (s *MemoryRecordStore) DropTrash(ctx context.Context, entries []datastore.StoredFileInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}
	for _, e := range entries {
		delete(s.trash, e.Key())
	}
	return nil
}

// ReferencedPaths implements datastore.RecordStore.
func (s *MemoryRecordStore) ReferencedPaths(ctx context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}

	paths := make(map[string]struct{})
	for _, components := range s.live {
		for _, info := range components {
			paths[info.Path] = struct{}{}
		}
	}
	return paths, nil
}

// Close implements datastore.RecordStore.
func (s *MemoryRecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// sortedInfos returns map values sorted by record key.
func sortedInfos[K comparable](m map[K]datastore.StoredFileInfo) []datastore.StoredFileInfo {
	out := make([]datastore.StoredFileInfo, 0, len(m))
	for _, info := range m {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

var _ datastore.RecordStore = (*MemoryRecordStore)(nil)
