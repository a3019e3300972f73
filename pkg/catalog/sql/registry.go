// Package sql implements catalog.WritableRegistry on database/sql.
//
// Three dialects are supported: SQLite (modernc.org/sqlite, the default for
// single-user repositories), PostgreSQL (lib/pq) and MySQL
// (go-sql-driver/mysql). Dataset type patterns, where expressions and
// find-first resolution are evaluated in Go on rows selected per collection,
// so all dialects answer queries identically.
package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/marmos91/catalogadmin/pkg/catalog"
)

// Config configures an SQL registry connection.
type Config struct {
	// Dialect selects the database: sqlite, postgres or mysql.
	Dialect string

	// DSN is the driver-specific data source name. For sqlite this is a
	// file path.
	DSN string

	// MaxOpenConns limits open connections (0 = driver default).
	MaxOpenConns int
}

// SQLRegistry implements catalog.WritableRegistry on a relational database.
//
// Thread Safety:
// All methods are safe for concurrent use; *sql.DB pools connections and
// multi-statement writes run in a transaction.
type SQLRegistry struct {
	db      *sql.DB
	dialect Dialect
}

var (
	_ catalog.WritableRegistry = (*SQLRegistry)(nil)
	_ catalog.SummaryWriter    = (*SQLRegistry)(nil)
)

// Open connects to the database described by cfg and applies the schema.
func Open(ctx context.Context, cfg Config) (*SQLRegistry, error) {
	dialect, err := DialectByName(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	dsn, err := dialect.NormalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s registry: %w", dialect.Name, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if dialect.Name == SQLite.Name {
		// SQLite allows a single writer; serialise to avoid SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s registry: %w", dialect.Name, err)
	}

	r := New(db, dialect)
	if err := r.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// New wraps an existing connection. The schema is not touched; call Migrate
// for a fresh database.
func New(db *sql.DB, dialect Dialect) *SQLRegistry {
	return &SQLRegistry{db: db, dialect: dialect}
}

// q rebinds a query for the registry's dialect.
func (r *SQLRegistry) q(query string) string {
	return r.dialect.Rebind(query)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ============================================================================
// Dataset types
// ============================================================================

// QueryDatasetTypes returns dataset types matching any pattern, sorted by name.
func (r *SQLRegistry) QueryDatasetTypes(ctx context.Context, patterns ...string) ([]catalog.DatasetType, error) {
	matcher, err := catalog.NewNameMatcher(patterns...)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, r.q("SELECT name, storage_class, dimensions FROM dataset_type ORDER BY name"))
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []catalog.DatasetType
	for rows.Next() {
		dt, err := scanDatasetType(rows)
		if err != nil {
			return nil, err
		}
		if matcher.Match(dt.Name) {
			result = append(result, dt)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query dataset types: %w", err)
	}
	// Database collations vary; order by byte value like the other registries.
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// GetDatasetType returns a dataset type by name.
func (r *SQLRegistry) GetDatasetType(ctx context.Context, name string) (catalog.DatasetType, error) {
	return r.getDatasetType(ctx, r.db, name)
}

func (r *SQLRegistry) getDatasetType(ctx context.Context, db queryer, name string) (catalog.DatasetType, error) {
	row := db.QueryRowContext(ctx, r.q("SELECT name, storage_class, dimensions FROM dataset_type WHERE name = ?"), name)
	dt, err := scanDatasetType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.DatasetType{}, catalog.NotFound("dataset type", name)
	}
	return dt, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDatasetType(s scanner) (catalog.DatasetType, error) {
	var (
		dt   catalog.DatasetType
		dims string
	)
	if err := s.Scan(&dt.Name, &dt.StorageClass, &dims); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dt, err
		}
		return dt, fmt.Errorf("failed to scan dataset type: %w", err)
	}
	if dims != "" {
		if err := json.Unmarshal([]byte(dims), &dt.Dimensions); err != nil {
			return dt, fmt.Errorf("failed to decode dimensions of %s: %w", dt.Name, err)
		}
	}
	return dt, nil
}

// UpdateDatasetTypeStorageClass rebinds the named dataset types in a single
// UPDATE statement inside one transaction.
func (r *SQLRegistry) UpdateDatasetTypeStorageClass(ctx context.Context, names []string, from, to string) (int, error) {
	names = uniqueStrings(names)
	if len(names) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(names)+2)
	args = append(args, to, from)
	for _, n := range names {
		args = append(args, n)
	}
	query := "UPDATE dataset_type SET storage_class = ? WHERE storage_class = ? AND name IN (" + Placeholders(len(names)) + ")"

	var count int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.q(query), args...)
		if err != nil {
			return fmt.Errorf("failed to update dataset type storage class: %w", err)
		}
		count, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to count updated dataset types: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// ============================================================================
// Collections
// ============================================================================

// GetCollection returns a collection record by name.
func (r *SQLRegistry) GetCollection(ctx context.Context, name string) (catalog.Collection, error) {
	return r.getCollection(ctx, r.db, name)
}

func (r *SQLRegistry) getCollection(ctx context.Context, db queryer, name string) (catalog.Collection, error) {
	c := catalog.Collection{Name: name}
	err := db.QueryRowContext(ctx, r.q("SELECT type FROM collection WHERE name = ?"), name).Scan(&c.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return c, catalog.NotFound("collection", name)
	}
	if err != nil {
		return c, fmt.Errorf("failed to get collection %s: %w", name, err)
	}
	return c, nil
}

// QueryCollections returns collections of the given types sorted by name.
func (r *SQLRegistry) QueryCollections(ctx context.Context, types []catalog.CollectionType, includeChains bool) ([]catalog.Collection, error) {
	wanted := make(map[catalog.CollectionType]struct{})
	if len(types) == 0 {
		types = catalog.AllCollectionTypes()
	}
	for _, t := range types {
		wanted[t] = struct{}{}
	}

	rows, err := r.db.QueryContext(ctx, r.q("SELECT name, type FROM collection ORDER BY name"))
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}

	var all []catalog.Collection
	for rows.Next() {
		var c catalog.Collection
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	_ = rows.Close()

	selected := make(map[string]struct{})
	for _, c := range all {
		if _, ok := wanted[c.Type]; !ok {
			continue
		}
		selected[c.Name] = struct{}{}

		if includeChains && c.Type == catalog.CollectionChained {
			children, err := catalog.FlattenSearchPath(ctx, []string{c.Name}, r.chainLookup)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				selected[child] = struct{}{}
			}
		}
	}

	result := make([]catalog.Collection, 0, len(selected))
	for _, c := range all {
		if _, ok := selected[c.Name]; ok {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// chainLookup resolves a collection for catalog.FlattenSearchPath.
func (r *SQLRegistry) chainLookup(ctx context.Context, name string) (catalog.CollectionType, []string, error) {
	c, err := r.getCollection(ctx, r.db, name)
	if err != nil {
		return 0, nil, err
	}
	if c.Type != catalog.CollectionChained {
		return c.Type, nil, nil
	}
	children, err := r.chainChildren(ctx, r.db, name)
	return c.Type, children, err
}

func (r *SQLRegistry) chainChildren(ctx context.Context, db queryer, parent string) ([]string, error) {
	rows, err := db.QueryContext(ctx, r.q("SELECT child FROM collection_chain WHERE parent = ? ORDER BY position"), parent)
	if err != nil {
		return nil, fmt.Errorf("failed to query chain %s: %w", parent, err)
	}
	defer func() { _ = rows.Close() }()
	return scanStrings(rows)
}

// ============================================================================
// Summaries
// ============================================================================

// GetCollectionSummary returns the cached summary of a collection.
func (r *SQLRegistry) GetCollectionSummary(ctx context.Context, name string) (catalog.CollectionSummary, error) {
	path, err := catalog.FlattenSearchPath(ctx, []string{name}, r.chainLookup)
	if err != nil {
		return catalog.CollectionSummary{}, err
	}

	summary := catalog.NewCollectionSummary()
	for _, member := range path {
		rows, err := r.db.QueryContext(ctx, r.q("SELECT dataset_type FROM collection_summary WHERE collection = ?"), member)
		if err != nil {
			return summary, fmt.Errorf("failed to query summary of %s: %w", member, err)
		}
		names, err := scanStrings(rows)
		_ = rows.Close()
		if err != nil {
			return summary, err
		}
		for _, n := range names {
			summary.DatasetTypes[n] = struct{}{}
		}
	}
	return summary, nil
}

// SetCollectionSummary overwrites the cached summary of a non-chained collection.
func (r *SQLRegistry) SetCollectionSummary(ctx context.Context, name string, summary catalog.CollectionSummary) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		c, err := r.getCollection(ctx, tx, name)
		if err != nil {
			return err
		}
		if c.Type == catalog.CollectionChained {
			return &catalog.StoreError{
				Code:    catalog.ErrInvalidArgument,
				Message: "chained collections have no summary of their own",
				Name:    name,
			}
		}

		if _, err := tx.ExecContext(ctx, r.q("DELETE FROM collection_summary WHERE collection = ?"), name); err != nil {
			return fmt.Errorf("failed to clear summary of %s: %w", name, err)
		}
		for _, dt := range summary.Names() {
			if _, err := tx.ExecContext(ctx, r.q("INSERT INTO collection_summary (collection, dataset_type) VALUES (?, ?)"), name, dt); err != nil {
				return fmt.Errorf("failed to write summary of %s: %w", name, err)
			}
		}
		return nil
	})
}

// RefreshCollectionSummaries rebuilds the summary table from run ownership
// and tag associations in one transaction.
func (r *SQLRegistry) RefreshCollectionSummaries(ctx context.Context) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.q("DELETE FROM collection_summary")); err != nil {
			return fmt.Errorf("failed to clear collection summaries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, r.q("INSERT INTO collection_summary (collection, dataset_type) SELECT DISTINCT run, dataset_type FROM dataset")); err != nil {
			return fmt.Errorf("failed to rebuild run summaries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, r.q("INSERT INTO collection_summary (collection, dataset_type) SELECT DISTINCT t.collection, d.dataset_type FROM dataset_tags t JOIN dataset d ON d.id = t.dataset_id")); err != nil {
			return fmt.Errorf("failed to rebuild tagged summaries: %w", err)
		}
		return nil
	})
}

// ============================================================================
// Datasets
// ============================================================================

const datasetColumns = "d.id, d.dataset_type, d.run, d.data_id"

// QueryDatasets returns references matching q.
func (r *SQLRegistry) QueryDatasets(ctx context.Context, q catalog.DatasetQuery) ([]catalog.DatasetRef, error) {
	if err := catalog.ValidateQuery(q); err != nil {
		return nil, err
	}
	if _, err := catalog.CompileWhere(q.Where); err != nil {
		return nil, err
	}
	matcher, err := catalog.NewNameMatcher(q.DatasetType)
	if err != nil {
		return nil, err
	}

	var byCollection [][]catalog.DatasetRef

	if len(q.Collections) == 0 {
		refs, err := r.queryRefs(ctx, matcher, "SELECT "+datasetColumns+" FROM dataset d")
		if err != nil {
			return nil, err
		}
		byCollection = append(byCollection, refs)
	} else {
		path, err := catalog.FlattenSearchPath(ctx, q.Collections, r.chainLookup)
		if err != nil {
			return nil, err
		}
		for _, name := range path {
			c, err := r.getCollection(ctx, r.db, name)
			if err != nil {
				return nil, err
			}

			var refs []catalog.DatasetRef
			if c.Type == catalog.CollectionRun {
				refs, err = r.queryRefs(ctx, matcher, "SELECT "+datasetColumns+" FROM dataset d WHERE d.run = ?", name)
			} else {
				refs, err = r.queryRefs(ctx, matcher, "SELECT "+datasetColumns+" FROM dataset d JOIN dataset_tags t ON t.dataset_id = d.id WHERE t.collection = ?", name)
			}
			if err != nil {
				return nil, err
			}
			byCollection = append(byCollection, refs)
		}
	}

	return catalog.SelectDatasets(q, byCollection)
}

// queryRefs runs a dataset query and keeps rows whose type matches.
// Literal patterns are pushed down into the WHERE clause.
func (r *SQLRegistry) queryRefs(ctx context.Context, matcher *catalog.NameMatcher, query string, args ...any) ([]catalog.DatasetRef, error) {
	if names, ok := matcher.Literals(); ok {
		if strings.Contains(query, " WHERE ") {
			query += " AND"
		} else {
			query += " WHERE"
		}
		query += " d.dataset_type IN (" + Placeholders(len(names)) + ")"
		for _, n := range names {
			args = append(args, n)
		}
	}

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []catalog.DatasetRef
	for rows.Next() {
		ref, err := scanRef(rows)
		if err != nil {
			return nil, err
		}
		if matcher.Match(ref.DatasetType) {
			refs = append(refs, ref)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	return refs, nil
}

func scanRef(s scanner) (catalog.DatasetRef, error) {
	var (
		ref    catalog.DatasetRef
		id     string
		dataID string
	)
	if err := s.Scan(&id, &ref.DatasetType, &ref.Run, &dataID); err != nil {
		return ref, fmt.Errorf("failed to scan dataset: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return ref, fmt.Errorf("invalid dataset id %q: %w", id, err)
	}
	ref.ID = parsed

	if ref.DataID, err = decodeDataID(dataID); err != nil {
		return ref, fmt.Errorf("failed to decode data ID of %s: %w", id, err)
	}
	return ref, nil
}

// encodeDataID serialises a data ID as JSON.
func encodeDataID(d catalog.DataID) (string, error) {
	if d == nil {
		d = catalog.DataID{}
	}
	data, err := json.Marshal(d)
	return string(data), err
}

// decodeDataID parses JSON and turns integral numbers back into int64 so
// data IDs compare the same before and after a round trip.
func decodeDataID(s string) (catalog.DataID, error) {
	d := catalog.DataID{}
	if s == "" || s == "null" {
		return d, nil
	}
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil, err
	}
	for k, v := range d {
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			d[k] = int64(f)
		}
	}
	return d, nil
}

// Close closes the underlying database.
func (r *SQLRegistry) Close() error {
	return r.db.Close()
}

// ============================================================================
// Helpers
// ============================================================================

// withTx runs fn in a transaction, committing on success and rolling back on error.
func (r *SQLRegistry) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
