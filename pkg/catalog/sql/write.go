package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/marmos91/catalogadmin/pkg/catalog"
)

// RegisterDatasetType adds a dataset type definition.
func (r *SQLRegistry) RegisterDatasetType(ctx context.Context, dt catalog.DatasetType) error {
	if dt.Name == "" || dt.StorageClass == "" {
		return &catalog.StoreError{
			Code:    catalog.ErrInvalidArgument,
			Message: "dataset type requires a name and a storage class",
			Name:    dt.Name,
		}
	}

	dims := dt.Dimensions
	if dims == nil {
		dims = []string{}
	}
	encoded, err := json.Marshal(dims)
	if err != nil {
		return fmt.Errorf("failed to encode dimensions of %s: %w", dt.Name, err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := r.getDatasetType(ctx, tx, dt.Name)
		switch {
		case err == nil:
			if existing.StorageClass == dt.StorageClass && slices.Equal(existing.Dimensions, dt.Dimensions) {
				return nil
			}
			return &catalog.StoreError{
				Code:    catalog.ErrConflict,
				Message: "dataset type already registered with a different definition",
				Name:    dt.Name,
			}
		case !catalog.IsNotFound(err):
			return err
		}

		_, err = tx.ExecContext(ctx,
			r.q("INSERT INTO dataset_type (name, storage_class, dimensions) VALUES (?, ?, ?)"),
			dt.Name, dt.StorageClass, string(encoded))
		if err != nil {
			return fmt.Errorf("failed to register dataset type %s: %w", dt.Name, err)
		}
		return nil
	})
}

// RegisterCollection adds a collection.
func (r *SQLRegistry) RegisterCollection(ctx context.Context, c catalog.Collection) error {
	if c.Name == "" {
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "collection name is empty"}
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := r.getCollection(ctx, tx, c.Name)
		switch {
		case err == nil:
			if existing.Type == c.Type {
				return nil
			}
			return &catalog.StoreError{
				Code:    catalog.ErrConflict,
				Message: "collection already registered with type " + existing.Type.String(),
				Name:    c.Name,
			}
		case !catalog.IsNotFound(err):
			return err
		}

		if _, err := tx.ExecContext(ctx, r.q("INSERT INTO collection (name, type) VALUES (?, ?)"), c.Name, int(c.Type)); err != nil {
			return fmt.Errorf("failed to register collection %s: %w", c.Name, err)
		}
		return nil
	})
}

// SetCollectionChain replaces the ordered children of a CHAINED collection.
func (r *SQLRegistry) SetCollectionChain(ctx context.Context, parent string, children []string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		c, err := r.getCollection(ctx, tx, parent)
		if err != nil {
			return err
		}
		if c.Type != catalog.CollectionChained {
			return &catalog.StoreError{
				Code:    catalog.ErrInvalidArgument,
				Message: "collection is not CHAINED",
				Name:    parent,
			}
		}
		for _, child := range children {
			if child == parent {
				return &catalog.StoreError{
					Code:    catalog.ErrInvalidArgument,
					Message: "chain cannot contain itself",
					Name:    parent,
				}
			}
			if _, err := r.getCollection(ctx, tx, child); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, r.q("DELETE FROM collection_chain WHERE parent = ?"), parent); err != nil {
			return fmt.Errorf("failed to clear chain %s: %w", parent, err)
		}
		for i, child := range children {
			_, err := tx.ExecContext(ctx,
				r.q("INSERT INTO collection_chain (parent, position, child) VALUES (?, ?, ?)"),
				parent, i, child)
			if err != nil {
				return fmt.Errorf("failed to write chain %s: %w", parent, err)
			}
		}
		return nil
	})
}

// InsertDatasets adds datasets to their run collections and updates the
// run summaries, all in one transaction.
func (r *SQLRegistry) InsertDatasets(ctx context.Context, refs []catalog.DatasetRef) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		runs := make(map[string]catalog.CollectionType)
		types := make(map[string]struct{})

		for _, ref := range refs {
			// Step 1: Validate references
			if _, ok := types[ref.DatasetType]; !ok {
				if _, err := r.getDatasetType(ctx, tx, ref.DatasetType); err != nil {
					return err
				}
				types[ref.DatasetType] = struct{}{}
			}
			ctype, ok := runs[ref.Run]
			if !ok {
				c, err := r.getCollection(ctx, tx, ref.Run)
				if err != nil {
					return err
				}
				ctype = c.Type
				runs[ref.Run] = ctype
			}
			if ctype != catalog.CollectionRun {
				return &catalog.StoreError{
					Code:    catalog.ErrInvalidArgument,
					Message: "datasets can only be inserted into RUN collections",
					Name:    ref.Run,
				}
			}

			exists, err := r.datasetExists(ctx, tx, ref.ID.String())
			if err != nil {
				return err
			}
			if exists {
				return &catalog.StoreError{
					Code:    catalog.ErrAlreadyExists,
					Message: "dataset already exists",
					Name:    ref.ID.String(),
				}
			}

			// Step 2: Insert dataset and summary row
			dataID, err := encodeDataID(ref.DataID)
			if err != nil {
				return fmt.Errorf("failed to encode data ID of %s: %w", ref.ID, err)
			}
			_, err = tx.ExecContext(ctx,
				r.q("INSERT INTO dataset (id, dataset_type, run, data_id) VALUES (?, ?, ?, ?)"),
				ref.ID.String(), ref.DatasetType, ref.Run, dataID)
			if err != nil {
				return fmt.Errorf("failed to insert dataset %s: %w", ref.ID, err)
			}
			if _, err := tx.ExecContext(ctx, r.q(r.dialect.InsertIgnore("collection_summary", "collection", "dataset_type")), ref.Run, ref.DatasetType); err != nil {
				return fmt.Errorf("failed to update summary of %s: %w", ref.Run, err)
			}
		}
		return nil
	})
}

// Associate adds existing datasets to a TAGGED or CALIBRATION collection.
func (r *SQLRegistry) Associate(ctx context.Context, collection string, refs []catalog.DatasetRef) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		c, err := r.getCollection(ctx, tx, collection)
		if err != nil {
			return err
		}
		if c.Type != catalog.CollectionTagged && c.Type != catalog.CollectionCalibration {
			return &catalog.StoreError{
				Code:    catalog.ErrInvalidArgument,
				Message: "datasets can only be associated with TAGGED or CALIBRATION collections",
				Name:    collection,
			}
		}

		for _, ref := range refs {
			var datasetType string
			err := tx.QueryRowContext(ctx, r.q("SELECT dataset_type FROM dataset WHERE id = ?"), ref.ID.String()).Scan(&datasetType)
			if errors.Is(err, sql.ErrNoRows) {
				return catalog.NotFound("dataset", ref.ID.String())
			}
			if err != nil {
				return fmt.Errorf("failed to look up dataset %s: %w", ref.ID, err)
			}

			if _, err := tx.ExecContext(ctx, r.q(r.dialect.InsertIgnore("dataset_tags", "collection", "dataset_id")), collection, ref.ID.String()); err != nil {
				return fmt.Errorf("failed to associate dataset %s: %w", ref.ID, err)
			}
			if _, err := tx.ExecContext(ctx, r.q(r.dialect.InsertIgnore("collection_summary", "collection", "dataset_type")), collection, datasetType); err != nil {
				return fmt.Errorf("failed to update summary of %s: %w", collection, err)
			}
		}
		return nil
	})
}

// RemoveDatasets deletes datasets and their tag associations. Unknown IDs
// are ignored; summaries are left untouched.
func (r *SQLRegistry) RemoveDatasets(ctx context.Context, refs []catalog.DatasetRef) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, ref := range refs {
			id := ref.ID.String()
			if _, err := tx.ExecContext(ctx, r.q("DELETE FROM dataset_tags WHERE dataset_id = ?"), id); err != nil {
				return fmt.Errorf("failed to remove associations of %s: %w", id, err)
			}
			if _, err := tx.ExecContext(ctx, r.q("DELETE FROM dataset WHERE id = ?"), id); err != nil {
				return fmt.Errorf("failed to remove dataset %s: %w", id, err)
			}
		}
		return nil
	})
}

func (r *SQLRegistry) datasetExists(ctx context.Context, db queryer, id string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, r.q("SELECT 1 FROM dataset WHERE id = ?"), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up dataset %s: %w", id, err)
	}
	return true, nil
}
