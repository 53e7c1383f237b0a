package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/reanchor/internal/db"
)

// newTestDB opens a throwaway migrated database under the test's temp
// directory. The file cleans up with the directory.
func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.MigrateUp("../../../../migrations"); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return database
}
