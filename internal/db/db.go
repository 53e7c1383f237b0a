// Package db owns the session database: connection setup and schema
// migrations for anchor records and the placement audit log.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite session database.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the sqlite database at path. Use
// ":memory:" for tests.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	// WAL keeps the HTTP surface readable while the engine writes.
	if _, err := sqlDB.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	return &DB{DB: sqlDB}, nil
}
