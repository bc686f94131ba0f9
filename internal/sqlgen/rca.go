package sqlgen

import (
	"cubesql/internal/domain"
)

// RcaColumn is the output column of a relative comparison.
const RcaColumn = "rca"

// Rca compiles a relative comparison ((a/b)/(c/d)) where each component is a
// full aggregation over a different drilldown set:
//
//	a: drills + drill_1 + drill_2
//	b: drills + drill_2
//	c: drills + drill_1
//	d: drills
//
// Cuts on a level key of drill_2 are dropped for a and c; cuts on a level key
// of either axis are dropped for b and d. The ratio measure occupies measure
// slot 0 in every component; caller measures are carried by a only and keep
// their shifted aliases (final_m1, final_m2, ...).
func (c *Compiler) Rca(
	table domain.TableSql,
	cuts []domain.CutSql,
	drills []domain.DrilldownSql,
	meas []domain.MeasureSql,
	rca domain.RcaSql,
) Relation {
	aDrills := concatDrills(drills, rca.Drill1, rca.Drill2)
	bDrills := concatDrills(drills, rca.Drill2)
	cDrills := concatDrills(drills, rca.Drill1)
	dDrills := concatDrills(drills)

	acCuts := excludeCuts(cuts, levelKeys(rca.Drill2))
	bdCuts := excludeCuts(cuts, levelKeys(rca.Drill1, rca.Drill2))

	allMeas := make([]domain.MeasureSql, 0, len(meas)+1)
	allMeas = append(allMeas, rca.Mea)
	allMeas = append(allMeas, meas...)
	ratioOnly := []domain.MeasureSql{rca.Mea}

	a := c.primaryAgg(table, acCuts, aDrills, allMeas, nil, rcaAlias("a"))
	b := c.primaryAgg(table, bdCuts, bDrills, ratioOnly, nil, rcaAlias("b"))
	cc := c.primaryAgg(table, acCuts, cDrills, allMeas[:1], nil, rcaAlias("c"))
	d := c.primaryAgg(table, bdCuts, dDrills, ratioOnly, nil, rcaAlias("d"))

	ab := c.joinComponents(a, "rca_a", b, "rca_b", b.Drills, false)
	abc := c.joinComponents(cc, "rca_c", ab, "rca_ab", cc.Drills, true)
	abcd := c.joinComponents(d, "rca_d", abc, "rca_abc", d.Drills, true)

	ratio := c.dialect.divide(c.dialect.divide("a", "b"), c.dialect.divide("c", "d")) + " AS " + RcaColumn

	values := []string{RcaColumn}
	for i := range meas {
		values = append(values, callerMeasureAlias(i, true))
	}

	stmt := abcd.selectFrom("rca_result", columns(a.Drills, []string{ratio}, values[1:])...)
	return newRelation(stmt, a.Drills, values)
}

// joinComponents joins two components on keys. The wide side is the one whose
// drill columns are a superset of the other's; its drills are projected. An
// empty key list produces a cross join.
func (c *Compiler) joinComponents(left Relation, leftAlias string, right Relation, rightAlias string, keys []string, rightIsWide bool) Relation {
	d := c.dialect
	wide, wideAlias := left, leftAlias
	if rightIsWide {
		wide, wideAlias = right, rightAlias
	}

	stmt := left.selectFrom(leftAlias, columns(
		d.projectAll(wideAlias, wide.Drills),
		d.projectAll(leftAlias, left.Values),
		d.projectAll(rightAlias, right.Values),
	)...)
	stmt = d.joinOn(stmt, leftAlias, right.SQL, rightAlias, keys)

	values := make([]string, 0, len(left.Values)+len(right.Values))
	values = append(values, left.Values...)
	values = append(values, right.Values...)
	return newRelation(stmt, wide.Drills, values)
}

// rcaAlias names the ratio measure after its component letter and leaves every
// other measure on the shared alias scheme.
func rcaAlias(letter string) func(int) string {
	return func(i int) string {
		if i == rcaMeasureIndex {
			return letter
		}
		return FinalMeasureAlias(i)
	}
}

func concatDrills(groups ...[]domain.DrilldownSql) []domain.DrilldownSql {
	var out []domain.DrilldownSql
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func levelKeys(groups ...[]domain.DrilldownSql) []string {
	var keys []string
	for _, g := range groups {
		for _, drill := range g {
			keys = append(keys, drill.KeyColumns()...)
		}
	}
	return keys
}

// excludeCuts drops cuts whose column is one of the blacklisted level keys.
func excludeCuts(cuts []domain.CutSql, blacklist []string) []domain.CutSql {
	drop := newColumnSet(blacklist...)
	var out []domain.CutSql
	for _, cut := range cuts {
		if !drop.has(cut.Column) {
			out = append(out, cut)
		}
	}
	return out
}
