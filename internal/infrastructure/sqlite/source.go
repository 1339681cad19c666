// Package sqlite reads the source database: schema introspection for
// migration, ordered row streams for transfer, and counts and samples for
// validation. The source is always opened read-only; nothing in this
// system ever writes to it.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Source is a read-only handle on the SQLite database.
type Source struct {
	db   *sql.DB
	path string
}

// Open opens path read-only. In-memory databases are rejected: every pool
// connection would see its own empty database.
func Open(path string) (*Source, error) {
	uri, err := readOnlyURI(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("open sqlite source: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite source %s: %w", path, err)
	}
	return &Source{db: db, path: path}, nil
}

func (s *Source) Close() error {
	return s.db.Close()
}

// Path returns the path the source was opened with.
func (s *Source) Path() string {
	return s.path
}

func readOnlyURI(path string) (string, error) {
	if path == ":memory:" || path == "file::memory:" || strings.Contains(path, "mode=memory") {
		return "", fmt.Errorf("in-memory SQLite databases are not supported")
	}
	if !strings.HasPrefix(path, "file:") {
		return "file:" + path + "?mode=ro", nil
	}
	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse sqlite URI: %w", err)
	}
	q := u.Query()
	q.Set("mode", "ro")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// quoteIdent quotes a SQLite identifier with double quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TableExists reports whether a base table with the given name exists.
func (s *Source) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

// RowCount returns the number of rows in table.
func (s *Source) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return n, nil
}
