package sql

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	catalogtesting "github.com/marmos91/catalogadmin/pkg/catalog/testing"
)

// TestSQLiteRegistry runs the registry conformance suite against SQLite.
func TestSQLiteRegistry(t *testing.T) {
	suite := &catalogtesting.RegistryTestSuite{
		NewRegistry: func(t *testing.T) catalog.WritableRegistry {
			reg, err := Open(context.Background(), Config{
				Dialect: "sqlite",
				DSN:     filepath.Join(t.TempDir(), "registry.sqlite3"),
			})
			require.NoError(t, err)
			return reg
		},
	}

	suite.Run(t)
}

func TestSQLiteRegistry_Reopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "registry.sqlite3")

	reg, err := Open(ctx, Config{Dialect: "sqlite", DSN: dsn})
	require.NoError(t, err)
	fx := catalogtesting.Seed(t, reg)
	require.NoError(t, reg.Close())

	reg, err = Open(ctx, Config{Dialect: "sqlite", DSN: dsn})
	require.NoError(t, err)
	defer reg.Close()

	refs, err := reg.QueryDatasets(ctx, catalog.DatasetQuery{DatasetType: "calexp", Collections: []string{"run/2"}})
	require.NoError(t, err)
	require.Len(t, refs, 1)

	want := fx.Refs[catalogtesting.RefKey("calexp", "run/2", 1)]
	assert.Equal(t, want.ID, refs[0].ID)
	assert.Equal(t, int64(1), refs[0].DataID["visit"])
}

func TestUpdateDatasetTypeStorageClass_SingleStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := New(db, Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE dataset_type SET storage_class = $1 WHERE storage_class = $2 AND name IN ($3, $4)")).
		WithArgs("Packages", "StructuredDataDict", "a_metadata", "c_metadata").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	count, err := reg.UpdateDatasetTypeStorageClass(context.Background(), []string{"a_metadata", "c_metadata", "a_metadata"}, "StructuredDataDict", "Packages")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDatasetTypeStorageClass_RollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := New(db, SQLite)
	boom := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE dataset_type SET storage_class = ? WHERE storage_class = ? AND name IN (?)")).
		WithArgs("Packages", "StructuredDataDict", "a_metadata").
		WillReturnError(boom)
	mock.ExpectRollback()

	count, err := reg.UpdateDatasetTypeStorageClass(context.Background(), []string{"a_metadata"}, "StructuredDataDict", "Packages")
	require.ErrorIs(t, err, boom)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshCollectionSummaries_Transaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := New(db, MySQL)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM collection_summary")).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO collection_summary (collection, dataset_type) SELECT DISTINCT run, dataset_type FROM dataset")).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("SELECT DISTINCT t.collection, d.dataset_type FROM dataset_tags t")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, reg.RefreshCollectionSummaries(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, New(db, SQLite).Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y IN ($2, $3)", Postgres.Rebind("SELECT a FROM t WHERE x = ? AND y IN (?, ?)"))
	assert.Equal(t, "SELECT ?", SQLite.Rebind("SELECT ?"))

	assert.Equal(t, "INSERT OR IGNORE INTO t (a, b) VALUES (?, ?)", SQLite.InsertIgnore("t", "a", "b"))
	assert.Equal(t, "INSERT IGNORE INTO t (a) VALUES (?)", MySQL.InsertIgnore("t", "a"))
	assert.Equal(t, "INSERT INTO t (a, b) VALUES (?, ?) ON CONFLICT DO NOTHING", Postgres.InsertIgnore("t", "a", "b"))

	d, err := DialectByName("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	_, err = DialectByName("oracle")
	assert.Error(t, err)
}

func TestNormalizeDSN(t *testing.T) {
	dsn, err := MySQL.NormalizeDSN("user:pw@tcp(db:3306)/catalog")
	require.NoError(t, err)
	assert.Contains(t, dsn, "clientFoundRows=true")

	_, err = MySQL.NormalizeDSN("not a dsn")
	assert.Error(t, err)

	dsn, err = SQLite.NormalizeDSN("registry.sqlite3")
	require.NoError(t, err)
	assert.Equal(t, "registry.sqlite3", dsn)
}

func TestDecodeDataID(t *testing.T) {
	d, err := decodeDataID(`{"instrument":"HSC","visit":903334,"ratio":0.5}`)
	require.NoError(t, err)
	assert.Equal(t, int64(903334), d["visit"])
	assert.Equal(t, 0.5, d["ratio"])
	assert.Equal(t, "HSC", d["instrument"])

	d, err = decodeDataID("null")
	require.NoError(t, err)
	assert.Empty(t, d)
}
