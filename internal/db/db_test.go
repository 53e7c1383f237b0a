package db

import (
	"path/filepath"
	"testing"
)

const testMigrationsDir = "../../migrations"

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestMigrateUpCreatesSchema(t *testing.T) {
	database := openTestDB(t)

	if err := database.MigrateUp(testMigrationsDir); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	// Running again is a no-op.
	if err := database.MigrateUp(testMigrationsDir); err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}

	version, dirty, err := database.MigrateVersion(testMigrationsDir)
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if dirty {
		t.Error("schema should not be dirty after a clean migration")
	}
	if version == 0 {
		t.Error("version should be non-zero after migrating up")
	}

	for _, table := range []string{"anchor_records", "placement_log"} {
		var name string
		err := database.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}
}

func TestMigrateDown(t *testing.T) {
	database := openTestDB(t)

	if err := database.MigrateUp(testMigrationsDir); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	if err := database.MigrateDown(testMigrationsDir); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}

	var name string
	err := database.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='anchor_records'`,
	).Scan(&name)
	if err == nil {
		t.Error("anchor_records should be gone after rolling back")
	}
}

func TestMigrateVersionFresh(t *testing.T) {
	database := openTestDB(t)

	version, dirty, err := database.MigrateVersion(testMigrationsDir)
	if err != nil {
		t.Fatalf("MigrateVersion on fresh database: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("fresh database version = %d dirty = %v, want 0 false", version, dirty)
	}
}
