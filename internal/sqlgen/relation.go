package sqlgen

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Relation is the output of one compilation stage: a SELECT statement and the
// ordered columns it projects. Drills are the grouping columns later stages may
// join, group, or sort on; Values are everything else (measures and metrics).
type Relation struct {
	SQL    string
	Drills []string
	Values []string

	// stmt is the builder SQL was rendered from. Nil for relations made
	// directly from text.
	stmt *sq.SelectBuilder
}

func newRelation(stmt sq.SelectBuilder, drills, values []string) Relation {
	return Relation{SQL: render(stmt), Drills: drills, Values: values, stmt: &stmt}
}

// selectFrom starts a SELECT of cols reading r as the derived table alias.
func (r Relation) selectFrom(alias string, cols ...string) sq.SelectBuilder {
	if r.stmt != nil {
		return sq.Select(cols...).FromSelect(*r.stmt, alias)
	}
	return sq.Select(cols...).From(derived(r.SQL, alias))
}

// render returns the text of a statement. Every fragment handed to a builder
// is literal SQL without placeholders, so there are never arguments to bind.
func render(s sq.Sqlizer) string {
	text, _, err := s.ToSql()
	if err != nil {
		// only an empty select list fails, which validated input never yields
		panic("sqlgen: " + err.Error())
	}
	return text
}

// derived renders `(sql) AS alias`.
func derived(sql, alias string) string {
	return render(sq.Alias(sq.Expr(sql), alias))
}

// DrillList renders the drill columns comma separated; empty when there are
// no drill columns.
func (r Relation) DrillList() string {
	return strings.Join(r.Drills, ", ")
}

// Columns returns drill columns followed by value columns.
func (r Relation) Columns() []string {
	out := make([]string, 0, len(r.Drills)+len(r.Values))
	out = append(out, r.Drills...)
	return append(out, r.Values...)
}

// MeasureAlias is the fact-grain alias of measure i.
func MeasureAlias(i int) string {
	return fmt.Sprintf("m%d", i)
}

// FinalMeasureAlias is the re-aggregated alias of measure i.
func FinalMeasureAlias(i int) string {
	return "final_" + MeasureAlias(i)
}

// rcaMeasureIndex is the measure slot reserved for the ratio measure in every
// relative comparison variant. Caller measures shift up by one.
const rcaMeasureIndex = 0

// callerMeasureAlias is the final alias of caller measure i, accounting for the
// reserved ratio slot when a relative comparison is compiled.
func callerMeasureAlias(i int, withRca bool) string {
	if withRca {
		return FinalMeasureAlias(i + rcaMeasureIndex + 1)
	}
	return FinalMeasureAlias(i)
}

// columns concatenates groups of select items. Empty groups contribute
// nothing, so the builder never sees a blank item.
func columns(groups ...[]string) []string {
	var items []string
	for _, g := range groups {
		items = append(items, g...)
	}
	return items
}

// columnSet is an insertion-ordered set of column names.
type columnSet struct {
	cols []string
	seen map[string]bool
}

func newColumnSet(cols ...string) *columnSet {
	s := &columnSet{seen: map[string]bool{}}
	s.add(cols...)
	return s
}

func (s *columnSet) add(cols ...string) {
	for _, c := range cols {
		if s.seen[c] {
			continue
		}
		s.seen[c] = true
		s.cols = append(s.cols, c)
	}
}

func (s *columnSet) has(col string) bool { return s.seen[col] }

func (s *columnSet) list() []string {
	return append([]string(nil), s.cols...)
}

// without returns cols minus the excluded names, keeping order.
func without(cols []string, excluded []string) []string {
	drop := newColumnSet(excluded...)
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !drop.has(c) {
			out = append(out, c)
		}
	}
	return out
}
