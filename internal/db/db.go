// Package db persists analysis runs in SQLite. The schema is managed by
// golang-migrate with migrations embedded in the binary.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQL connection so stores and migrations share one handle.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the SQLite database at path and applies the
// connection pragmas. Use ":memory:" for tests.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Apply essential PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	return &DB{sqlDB}, nil
}
