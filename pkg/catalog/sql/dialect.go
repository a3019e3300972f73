package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	// Name is the configuration name (sqlite, postgres, mysql).
	Name string

	// Driver is the database/sql driver name.
	Driver string

	// numbered selects $1, $2, ... placeholders instead of ?.
	numbered bool
}

var (
	// SQLite uses modernc.org/sqlite (pure Go, no cgo).
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite"}

	// Postgres uses github.com/lib/pq.
	Postgres = Dialect{Name: "postgres", Driver: "postgres", numbered: true}

	// MySQL uses github.com/go-sql-driver/mysql.
	MySQL = Dialect{Name: "mysql", Driver: "mysql"}
)

// DialectByName returns the dialect for a configuration name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported SQL dialect: %s", name)
	}
}

// NormalizeDSN adjusts a data source name so every dialect reports the
// same affected-row counts. MySQL otherwise counts only rows whose values
// changed.
func (d Dialect) NormalizeDSN(dsn string) (string, error) {
	if d.Name != MySQL.Name {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

// Rebind rewrites ? placeholders for dialects that number them.
// Queries in this package never contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InsertIgnore returns an INSERT statement that skips rows violating a
// primary key instead of failing.
func (d Dialect) InsertIgnore(table string, columns ...string) string {
	placeholders := Placeholders(len(columns))
	cols := strings.Join(columns, ", ")

	switch d.Name {
	case MySQL.Name:
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", table, cols, placeholders)
	case Postgres.Name:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING", table, cols, placeholders)
	default:
		return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, cols, placeholders)
	}
}

// Placeholders returns n comma-separated ? placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
