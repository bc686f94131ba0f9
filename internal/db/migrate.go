package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/pressly/goose/v3"
)

const (
	migrationsDir = "migrations"
	gooseUp       = "-- +goose Up"
	gooseDown     = "-- +goose Down"
)

// RunMigrations applies the pending star schema migrations to a SQLite pool.
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(EmbedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// ApplySchema runs the Up section of every embedded migration, in version
// order, against an engine goose has no dialect for (DuckDB). It is meant for
// fresh databases and keeps no version table.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(EmbedMigrations, migrationsDir+"/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := fs.ReadFile(EmbedMigrations, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		up := upSection(string(body))
		if strings.TrimSpace(up) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, up); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// SeedDemo loads the demo rows unless the sales table already has data.
func SeedDemo(ctx context.Context, db *sql.DB) error {
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM sales").Scan(&n); err != nil {
		return fmt.Errorf("count sales: %w", err)
	}
	if n > 0 {
		return nil
	}

	body, err := fs.ReadFile(EmbedSeed, "seed/demo.sql")
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	return nil
}

// upSection returns the statements between the goose Up and Down markers.
func upSection(body string) string {
	_, after, ok := strings.Cut(body, gooseUp)
	if !ok {
		return ""
	}
	up, _, _ := strings.Cut(after, gooseDown)
	return up
}
