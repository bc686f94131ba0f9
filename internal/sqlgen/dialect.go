package sqlgen

import (
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// DialectType names a SQL target.
type DialectType string

// Supported targets.
const (
	DialectClickHouse DialectType = "clickhouse"
	DialectDuckDB     DialectType = "duckdb"
	DialectPostgres   DialectType = "postgres"
)

// Dialect captures the syntax differences between targets. Every dialect
// accepts the same input and shares the same join ordering and two-pass
// aggregation; only emitted syntax differs.
type Dialect struct {
	Type DialectType

	// JoinKeyword introduces an equality join.
	JoinKeyword string

	// UsingJoin joins on shared column names with USING. When false, joins use
	// ON with alias-qualified columns and projections are qualified too.
	UsingJoin bool

	// UsingParens wraps the USING column list in parentheses.
	UsingParens bool

	// LimitBy supports `LIMIT n BY col` for top-n per group.
	LimitBy bool

	// FloatDivision is set when `/` on integers already yields a float.
	FloatDivision bool
}

// ClickHouseDialect targets the ClickHouse column store.
var ClickHouseDialect = &Dialect{
	Type:          DialectClickHouse,
	JoinKeyword:   "ALL INNER JOIN",
	UsingJoin:     true,
	LimitBy:       true,
	FloatDivision: true,
}

// DuckDBDialect targets the embedded DuckDB column store.
var DuckDBDialect = &Dialect{
	Type:          DialectDuckDB,
	JoinKeyword:   "INNER JOIN",
	UsingJoin:     true,
	UsingParens:   true,
	FloatDivision: true,
}

// PostgresDialect targets row stores with standard join syntax (PostgreSQL,
// SQLite).
var PostgresDialect = &Dialect{
	Type:        DialectPostgres,
	JoinKeyword: "INNER JOIN",
}

// DialectMap holds the registered dialects.
var DialectMap = map[DialectType]*Dialect{
	DialectClickHouse: ClickHouseDialect,
	DialectDuckDB:     DuckDBDialect,
	DialectPostgres:   PostgresDialect,
}

// GetDialect returns the dialect for the given target, or nil if not found.
func GetDialect(target string) *Dialect {
	t := strings.ToLower(strings.TrimSpace(target))
	if d, ok := DialectMap[DialectType(t)]; ok {
		return d
	}
	switch t {
	case "postgresql", "standard", "sqlite", "sqlite3":
		return PostgresDialect
	case "ch":
		return ClickHouseDialect
	}
	return nil
}

// DialectNames lists registered dialect names in sorted order.
func DialectNames() []string {
	names := make([]string, 0, len(DialectMap))
	for t := range DialectMap {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

// ref renders a column reference inside a joined FROM clause.
func (d *Dialect) ref(alias, col string) string {
	if d.UsingJoin {
		return col
	}
	return alias + "." + col
}

// project renders a column reference as a select-list item that keeps the
// bare column name.
func (d *Dialect) project(alias, col string) string {
	if d.UsingJoin {
		return col
	}
	return alias + "." + col + " AS " + col
}

func (d *Dialect) projectAll(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.project(alias, c)
	}
	return out
}

// joinOn attaches right as the derived table rightAlias to b, whose FROM
// clause is the derived table leftAlias. An empty key list yields a cross
// join.
func (d *Dialect) joinOn(b sq.SelectBuilder, leftAlias, right, rightAlias string, keys []string) sq.SelectBuilder {
	rhs := derived(right, rightAlias)
	if len(keys) == 0 {
		return b.JoinClause("CROSS JOIN " + rhs)
	}
	if d.UsingJoin {
		using := strings.Join(keys, ", ")
		if d.UsingParens {
			using = "(" + using + ")"
		}
		return b.JoinClause(d.JoinKeyword + " " + rhs + " USING " + using)
	}
	conds := make([]string, len(keys))
	for i, k := range keys {
		conds[i] = leftAlias + "." + k + " = " + rightAlias + "." + k
	}
	return b.JoinClause(d.JoinKeyword + " " + rhs + " ON " + strings.Join(conds, " AND "))
}

// divide renders a ratio. Targets with integer division get an explicit cast
// and a zero guard.
func (d *Dialect) divide(num, den string) string {
	if d.FloatDivision {
		return "(" + num + " / " + den + ")"
	}
	return "(CAST(" + num + " AS DOUBLE PRECISION) / NULLIF(" + den + ", 0))"
}

// safeDivide is divide with a zero guard on every target.
func (d *Dialect) safeDivide(num, den string) string {
	if d.FloatDivision {
		return "(" + num + " / NULLIF(" + den + ", 0))"
	}
	return d.divide(num, den)
}
