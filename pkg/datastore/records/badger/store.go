// Package badger implements a persistent datastore.RecordStore on BadgerDB.
//
// Records are JSON-encoded under prefixed keys (see keys.go). Each mutating
// method runs in a single Badger transaction, so batches apply atomically.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/datastore"
)

// BadgerRecordStore implements datastore.RecordStore.
//
// Thread Safety:
// BadgerDB transactions provide isolation; the store adds no locking of its
// own. Conflicting concurrent writers receive badger.ErrConflict.
type BadgerRecordStore struct {
	db *badgerdb.DB
}

// BadgerRecordStoreConfig configures the store.
type BadgerRecordStoreConfig struct {
	// DBPath is the directory holding the database files.
	DBPath string

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64

	// BadgerOptions overrides every option above when set.
	BadgerOptions *badgerdb.Options
}

// NewBadgerRecordStore opens (creating if needed) a record database.
//
// Parameters:
//   - ctx: Context for cancellation
//   - config: Database path and cache sizes
//
// Returns:
//   - *BadgerRecordStore: Open store
//   - error: Error if the database cannot be opened or context is cancelled
func NewBadgerRecordStore(ctx context.Context, config BadgerRecordStoreConfig) (*BadgerRecordStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badgerdb.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if config.DBPath == "" {
			return nil, fmt.Errorf("badger record store: db path is required")
		}

		// Records are small JSON documents read in prefix scans.
		opts = badgerdb.DefaultOptions(config.DBPath)
		opts = opts.WithLoggingLevel(badgerdb.WARNING)
		opts = opts.WithCompression(options.None)

		blockCacheMB := config.BlockCacheSizeMB
		if blockCacheMB == 0 {
			blockCacheMB = 64
		}
		indexCacheMB := config.IndexCacheSizeMB
		if indexCacheMB == 0 {
			indexCacheMB = 32
		}
		opts = opts.WithBlockCacheSize(blockCacheMB << 20)
		opts = opts.WithIndexCacheSize(indexCacheMB << 20)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", opts.Dir, err)
	}

	return &BadgerRecordStore{db: db}, nil
}

// GetRecords implements datastore.RecordStore.
func (s *BadgerRecordStore) GetRecords(ctx context.Context, ids []catalog.DatasetID) (map[catalog.DatasetID][]datastore.StoredFileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[catalog.DatasetID][]datastore.StoredFileInfo, len(ids))

	err := s.db.View(func(txn *badgerdb.Txn) error {
		for i, id := range ids {
			if i%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			infos, err := scanPrefix(txn, keyDatasetPrefix(id))
			if err != nil {
				return err
			}
			if len(infos) > 0 {
				out[id] = infos
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read stored records: %w", err)
	}
	return out, nil
}

// PutRecords implements datastore.RecordStore.
func (s *BadgerRecordStore) PutRecords(ctx context.Context, infos []datastore.StoredFileInfo, mode datastore.InsertMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		for _, info := range infos {
			key := keyRecord(info)

			if mode == datastore.InsertModeInsert {
				_, err := txn.Get(key)
				if err == nil {
					return fmt.Errorf("%w: %s", datastore.ErrRecordExists, info.Key())
				}
				if !errors.Is(err, badgerdb.ErrKeyNotFound) {
					return fmt.Errorf("failed to check record %s: %w", info.Key(), err)
				}
			}

			data, err := json.Marshal(info)
			if err != nil {
				return fmt.Errorf("failed to encode record %s: %w", info.Key(), err)
			}
			if err := txn.Set(key, data); err != nil {
				return fmt.Errorf("failed to write record %s: %w", info.Key(), err)
			}
		}
		return nil
	})
}

// TrashRecords implements datastore.RecordStore.
func (s *BadgerRecordStore) TrashRecords(ctx context.Context, ids []catalog.DatasetID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	moved := 0
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		moved = 0
		for _, id := range ids {
			infos, err := scanPrefix(txn, keyDatasetPrefix(id))
			if err != nil {
				return err
			}

			for _, info := range infos {
				data, err := json.Marshal(info)
				if err != nil {
					return fmt.Errorf("failed to encode record %s: %w", info.Key(), err)
				}
				if err := txn.Set(keyTrash(info), data); err != nil {
					return err
				}
				if err := txn.Delete(keyRecord(info)); err != nil {
					return err
				}
				moved++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to trash records: %w", err)
	}
	return moved, nil
}

// ListTrash implements datastore.RecordStore.
func (s *BadgerRecordStore) ListTrash(ctx context.Context) ([]datastore.StoredFileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []datastore.StoredFileInfo
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var err error
		entries, err = scanPrefix(txn, []byte(prefixTrash))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list trash: %w", err)
	}
	return entries, nil
}

// DropTrash implements datastore.RecordStore.
func (s *BadgerRecordStore) DropTrash(ctx context.Context, entries []datastore.StoredFileInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		for _, e := range entries {
			if err := txn.Delete(keyTrash(e)); err != nil {
				return fmt.Errorf("failed to drop trash entry %s: %w", e.Key(), err)
			}
		}
		return nil
	})
}

// ReferencedPaths implements datastore.RecordStore.
//
// Scans every live record; the context is checked every 1000 records.
func (s *BadgerRecordStore) ReferencedPaths(ctx context.Context) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths := make(map[string]struct{})
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefixRecord)

		it := txn.NewIterator(opts)
		defer it.Close()

		count := 0
		for it.Rewind(); it.Valid(); it.Next() {
			count++
			if count%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			var info datastore.StoredFileInfo
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return fmt.Errorf("failed to decode record: %w", err)
			}
			paths[info.Path] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan referenced paths: %w", err)
	}
	return paths, nil
}

// Close closes the database, flushing pending writes.
func (s *BadgerRecordStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

// scanPrefix decodes every record under prefix in key order.
func scanPrefix(txn *badgerdb.Txn, prefix []byte) ([]datastore.StoredFileInfo, error) {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var out []datastore.StoredFileInfo
	for it.Rewind(); it.Valid(); it.Next() {
		var info datastore.StoredFileInfo
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		}); err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", it.Item().Key(), err)
		}
		out = append(out, info)
	}
	return out, nil
}

var _ datastore.RecordStore = (*BadgerRecordStore)(nil)
