// Package sqlgen compiles multidimensional queries (drilldowns, cuts,
// measures, relative comparisons, growth, and result options) into a single
// SQL statement. Input is assumed to be validated; the compiler never fails.
package sqlgen

import (
	"cubesql/internal/domain"
)

// Compile runs the full pipeline: a relative comparison or the base
// aggregation, then growth when requested, then the outer clauses. The
// returned relation carries the final SQL and its output columns.
func (c *Compiler) Compile(q *domain.Query) Relation {
	var rel Relation
	if q.Rca != nil {
		rel = c.Rca(q.Table, q.Cuts, q.Drills, q.Measures, *q.Rca)
	} else {
		rel = c.PrimaryAgg(q.Table, q.Cuts, q.Drills, q.Measures, q.HiddenDrills)
	}

	if q.Growth != nil {
		measure := callerMeasureAlias(q.Growth.MeasureIndex, q.Rca != nil)
		rel = c.Growth(rel, *q.Growth, measure)
	}

	return c.WrapOptions(rel, q.Top, q.TopWhere, q.Sort, q.Limit)
}

// CompileSQL is Compile returning only the SQL text.
func (c *Compiler) CompileSQL(q *domain.Query) string {
	return c.Compile(q).SQL
}
