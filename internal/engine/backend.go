// Package engine executes compiled SQL on DuckDB or SQLite through
// database/sql and decodes the results into domain data frames.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"cubesql/internal/db"
	"cubesql/internal/domain"
)

// Kind names a supported database engine.
type Kind string

// Supported engines.
const (
	KindDuckDB Kind = "duckdb"
	KindSQLite Kind = "sqlite"
)

// ParseKind validates an engine name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindDuckDB, KindSQLite:
		return Kind(s), nil
	}
	return "", domain.ErrNotFound("unknown backend %q (must be %q or %q)", s, KindDuckDB, KindSQLite)
}

// DefaultDialect is the SQL dialect the engine accepts natively.
func (k Kind) DefaultDialect() string {
	if k == KindSQLite {
		return "sqlite"
	}
	return "duckdb"
}

// Compile-time check.
var _ domain.Backend = (*SQLBackend)(nil)

// SQLBackend implements domain.Backend on a database/sql pool.
type SQLBackend struct {
	kind   Kind
	db     *sql.DB
	closer func() error
	logger *slog.Logger
}

// NewSQLBackend wraps an open pool. Close closes the pool.
func NewSQLBackend(kind Kind, pool *sql.DB, logger *slog.Logger) *SQLBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLBackend{kind: kind, db: pool, closer: pool.Close, logger: logger}
}

// Options configures Open.
type Options struct {
	Kind Kind
	// Path is the database file. Empty opens an in-memory DuckDB; SQLite
	// requires a file.
	Path string
	// Seed loads the demo rows into an empty star schema.
	Seed bool
}

// Open opens the configured engine, installs the star schema and, when
// requested, the demo rows.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*SQLBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Kind {
	case KindDuckDB:
		pool, err := db.OpenDuckDB(opts.Path)
		if err != nil {
			return nil, err
		}
		if err := prepare(ctx, pool, opts.Seed, func() error { return db.ApplySchema(ctx, pool) }); err != nil {
			_ = pool.Close()
			return nil, err
		}
		logger.Info("duckdb backend ready", "path", opts.Path, "seeded", opts.Seed)
		return NewSQLBackend(KindDuckDB, pool, logger), nil

	case KindSQLite:
		if opts.Path == "" {
			return nil, domain.ErrValidation("sqlite backend requires a database path")
		}
		writeDB, readDB, err := db.OpenSQLitePair(opts.Path, 0)
		if err != nil {
			return nil, err
		}
		if err := prepare(ctx, writeDB, opts.Seed, func() error { return db.RunMigrations(writeDB) }); err != nil {
			_ = readDB.Close()
			_ = writeDB.Close()
			return nil, err
		}
		logger.Info("sqlite backend ready", "path", opts.Path, "seeded", opts.Seed)
		b := NewSQLBackend(KindSQLite, readDB, logger)
		b.closer = func() error {
			rerr := readDB.Close()
			if werr := writeDB.Close(); werr != nil {
				return werr
			}
			return rerr
		}
		return b, nil
	}

	_, err := ParseKind(string(opts.Kind))
	return nil, err
}

func prepare(ctx context.Context, pool *sql.DB, seed bool, schema func() error) error {
	if err := schema(); err != nil {
		return fmt.Errorf("install schema: %w", err)
	}
	if seed {
		if err := db.SeedDemo(ctx, pool); err != nil {
			return err
		}
	}
	return nil
}

// Name implements domain.Backend.
func (b *SQLBackend) Name() string { return string(b.kind) }

// Kind returns the engine kind.
func (b *SQLBackend) Kind() Kind { return b.kind }

// DB exposes the query pool.
func (b *SQLBackend) DB() *sql.DB { return b.db }

// Close releases every pool held by the backend.
func (b *SQLBackend) Close() error { return b.closer() }

// Ping checks the query pool.
func (b *SQLBackend) Ping(ctx context.Context) error { return b.db.PingContext(ctx) }

// Exec implements domain.Backend. The statement is submitted verbatim.
func (b *SQLBackend) Exec(ctx context.Context, sqlQuery string) (*domain.DataFrame, error) {
	start := time.Now()

	rows, err := b.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, &domain.ExecutionError{Backend: b.Name(), Err: err}
	}
	defer rows.Close() //nolint:errcheck

	frame, err := scanFrame(rows)
	if err != nil {
		return nil, &domain.ExecutionError{Backend: b.Name(), Err: err}
	}

	b.logger.Debug("statement executed",
		"backend", b.Name(),
		"rows", frame.Len(),
		"duration", time.Since(start),
	)
	return frame, nil
}

func scanFrame(rows *sql.Rows) (*domain.DataFrame, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	frame := &domain.DataFrame{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
		frame.Rows = append(frame.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return frame, nil
}

// normalize maps driver-specific values onto JSON-friendly Go types.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case interface{ Float64() float64 }:
		return x.Float64()
	}
	return v
}
