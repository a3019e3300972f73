package sql

import (
	"context"
	"fmt"
)

// schema is applied in order by Migrate. Every statement is idempotent and
// portable across the supported dialects.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS dataset_type (
		name VARCHAR(255) NOT NULL PRIMARY KEY,
		storage_class VARCHAR(255) NOT NULL,
		dimensions TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS collection (
		name VARCHAR(255) NOT NULL PRIMARY KEY,
		type INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS collection_chain (
		parent VARCHAR(255) NOT NULL,
		position INTEGER NOT NULL,
		child VARCHAR(255) NOT NULL,
		PRIMARY KEY (parent, position)
	)`,
	`CREATE TABLE IF NOT EXISTS dataset (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		dataset_type VARCHAR(255) NOT NULL,
		run VARCHAR(255) NOT NULL,
		data_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dataset_tags (
		collection VARCHAR(255) NOT NULL,
		dataset_id VARCHAR(36) NOT NULL,
		PRIMARY KEY (collection, dataset_id)
	)`,
	`CREATE TABLE IF NOT EXISTS collection_summary (
		collection VARCHAR(255) NOT NULL,
		dataset_type VARCHAR(255) NOT NULL,
		PRIMARY KEY (collection, dataset_type)
	)`,
}

// Migrate creates the registry tables if they do not exist.
func (r *SQLRegistry) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate registry schema: %w", err)
		}
	}
	return nil
}
