// Package testing provides test database helpers.
package testing

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/database"
)

// NewTestDB creates a file-backed portfolio database for testing with the
// schema applied. Returns the database and an idempotent cleanup function.
func NewTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()

	tmpPath, cleanupFile := CreateTempDBFile(t, "portfolio")

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		cleanupFile()
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		cleanupFile()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database: %v", err)
		}
		cleanupFile()
	}
}

// NewTestDBWithSchema creates a test database and applies a custom schema
// instead of running migrations.
func NewTestDBWithSchema(t *testing.T, name, schema string) (*database.DB, func()) {
	t.Helper()

	tmpPath, cleanupFile := CreateTempDBFile(t, name)

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		cleanupFile()
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if schema != "" {
		if _, err := db.Conn().Exec(schema); err != nil {
			_ = db.Close()
			cleanupFile()
			t.Fatalf("Failed to execute schema for test database %s: %v", name, err)
		}
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		cleanupFile()
	}
}

// CreateTempDBFile creates a temporary database file for testing.
// Returns the file path and a cleanup function that removes the file
// along with its WAL sidecar files.
func CreateTempDBFile(t *testing.T, name string) (string, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	return tmpPath, func() {
		for _, path := range []string{tmpPath, tmpPath + "-wal", tmpPath + "-shm"} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				t.Logf("Warning: Failed to remove %s: %v", path, err)
			}
		}
	}
}

// GetRawConnection returns the raw *sql.DB connection from a database.DB
// instance for tests that need direct access.
func GetRawConnection(db *database.DB) *sql.DB {
	return db.Conn()
}
