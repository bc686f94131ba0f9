package sqlgen

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"cubesql/internal/domain"
)

// Growth output columns.
const (
	GrowthValueColumn = "growth_value"
	GrowthPctColumn   = "growth_pct"

	growthRankColumn = "growth_rank"
	growthPrevColumn = "growth_prev"
)

// Growth relates every row of rel to the row with the same non-time drill
// values at the previous time value, and adds the absolute and relative change
// of the measure column.
//
// Distinct time values are numbered with DENSE_RANK over the time drill
// columns. A copy of rel shifted one rank forward is inner joined on the
// non-time drill columns and the rank, so rows without a predecessor drop out.
func (c *Compiler) Growth(rel Relation, growth domain.GrowthSql, measure string) Relation {
	d := c.dialect
	timeCols := growth.TimeDrill.Columns()
	others := without(rel.Drills, timeCols)
	rank := "dense_rank() OVER (ORDER BY " + strings.Join(timeCols, ", ") + ")"

	current := rel.selectFrom("growth_base", columns(rel.Drills, rel.Values, []string{rank + " AS " + growthRankColumn})...)
	previous := rel.selectFrom("growth_base", columns(others, []string{
		measure + " AS " + growthPrevColumn,
		rank + " + 1 AS " + growthRankColumn,
	})...)

	keys := append(append([]string(nil), others...), growthRankColumn)

	cur := d.ref("growth_cur", measure)
	prev := d.ref("growth_last", growthPrevColumn)
	delta := "(" + cur + " - " + prev + ")"

	stmt := sq.Select(columns(
		d.projectAll("growth_cur", rel.Drills),
		d.projectAll("growth_cur", rel.Values),
		[]string{
			delta + " AS " + GrowthValueColumn,
			d.safeDivide(delta, prev) + " AS " + GrowthPctColumn,
		},
	)...).FromSelect(current, "growth_cur")
	stmt = d.joinOn(stmt, "growth_cur", render(previous), "growth_last", keys)

	values := append(append([]string(nil), rel.Values...), GrowthValueColumn, GrowthPctColumn)
	return newRelation(stmt, rel.Drills, values)
}
