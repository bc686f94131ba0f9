package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestSQLite opens a SQLite pair in t.TempDir(), migrates and seeds it
// through the write pool, and registers cleanup. Queries go to readDB.
func OpenTestSQLite(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite")
	writeDB, readDB, err := OpenSQLitePair(path, 4)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if err := RunMigrations(writeDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if err := SeedDemo(context.Background(), writeDB); err != nil {
		t.Fatalf("seed demo: %v", err)
	}
	return writeDB, readDB
}

// OpenTestDuckDB opens an in-memory DuckDB with the demo schema and rows.
func OpenTestDuckDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenDuckDB("")
	if err != nil {
		t.Fatalf("open test duckdb: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err := ApplySchema(ctx, db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	if err := SeedDemo(ctx, db); err != nil {
		t.Fatalf("seed demo: %v", err)
	}
	return db
}
