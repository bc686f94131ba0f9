package domain

import "context"

// Backend executes compiled SQL against a database engine.
// Implemented by engine.SQLBackend.
type Backend interface {
	// Exec submits sqlQuery verbatim and returns the full result set.
	Exec(ctx context.Context, sqlQuery string) (*DataFrame, error)
	// Name identifies the engine (e.g. "duckdb", "sqlite").
	Name() string
}

// DataFrame is a decoded result set.
type DataFrame struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of rows.
func (f *DataFrame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Column returns the values of the named column, or nil when absent.
func (f *DataFrame) Column(name string) []any {
	if f == nil {
		return nil
	}
	idx := -1
	for i, c := range f.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]any, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[idx]
	}
	return out
}
