package sqlgen

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"cubesql/internal/domain"
)

// Compiler turns queries into SQL text for one dialect. It holds no mutable
// state and is safe for concurrent use.
type Compiler struct {
	dialect *Dialect
}

// New creates a Compiler for the given dialect. A nil dialect selects
// ClickHouse.
func New(d *Dialect) *Compiler {
	if d == nil {
		d = ClickHouseDialect
	}
	return &Compiler{dialect: d}
}

// Dialect returns the compiler's target dialect.
func (c *Compiler) Dialect() *Dialect {
	return c.dialect
}

// PrimaryAgg compiles the base aggregation.
//
// The fact table is aggregated once at fact grain (inline drill columns plus
// the foreign key of every external dimension), each external dimension is then
// joined on in turn, and the joined rows are aggregated again at the requested
// drill grain. The second pass merges rows that a dimension join rolled up to
// a coarser level than the fact-grain grouping.
func (c *Compiler) PrimaryAgg(
	table domain.TableSql,
	cuts []domain.CutSql,
	drills []domain.DrilldownSql,
	meas []domain.MeasureSql,
	hidden []domain.HiddenDrilldownSql,
) Relation {
	return c.primaryAgg(table, cuts, drills, meas, hidden, FinalMeasureAlias)
}

func (c *Compiler) primaryAgg(
	table domain.TableSql,
	cuts []domain.CutSql,
	drills []domain.DrilldownSql,
	meas []domain.MeasureSql,
	hidden []domain.HiddenDrilldownSql,
	finalAlias func(int) string,
) Relation {
	cls := Classify(table, cuts, drills)
	dims := OrderJoins(table, cls.ExternalDrills)

	factCols := newColumnSet()
	for _, drill := range cls.InlineDrills {
		factCols.add(drill.Columns()...)
	}
	for _, dim := range dims {
		factCols.add(dim.ForeignKey)
	}

	// Hidden drilldowns are grouped on here and dropped by the first join or
	// the final aggregation.
	hiddenSet := newColumnSet()
	for _, h := range hidden {
		hiddenSet.add(h.Drilldown.Columns()...)
	}
	groupCols := append(factCols.list(), without(hiddenSet.list(), factCols.list())...)

	var pass1, carried []string
	for i, m := range meas {
		pass1 = append(pass1, pass1Measure(m, i)...)
		carried = append(carried, carriedMeasure(m, i)...)
	}

	fact := sq.Select(columns(groupCols, pass1)...).
		From(table.Name).
		GroupBy(groupCols...)
	for _, pred := range cutPredicates(cls) {
		fact = fact.Where(sq.Expr(pred))
	}

	acc := foldState{stmt: fact, cols: factCols}
	for _, dim := range dims {
		acc = c.foldJoin(acc, dim, carried)
	}

	finalCols := newColumnSet()
	for _, drill := range drills {
		finalCols.add(drill.Columns()...)
	}
	drillCols := finalCols.list()

	finalMeas := make([]string, len(meas))
	values := make([]string, len(meas))
	for i, m := range meas {
		values[i] = finalAlias(i)
		finalMeas[i] = c.dialect.pass2Measure(m, i, values[i])
	}

	final := sq.Select(columns(drillCols, finalMeas)...).
		FromSelect(acc.stmt, "agg").
		GroupBy(drillCols...)
	return newRelation(final, drillCols, values)
}

// foldState accumulates the nested join: the query so far, the dimension
// columns it projects, and the next free alias number.
type foldState struct {
	stmt  sq.SelectBuilder
	cols  *columnSet
	alias int
}

// foldJoin joins one dimension subquery onto the accumulated query. Measures
// pass through untouched; they are only re-aggregated in the final pass.
func (c *Compiler) foldJoin(acc foldState, dim DimSubquery, measures []string) foldState {
	d := c.dialect
	dimAlias := fmt.Sprintf("alias_%d", acc.alias)
	accAlias := fmt.Sprintf("alias_%d", acc.alias+1)

	accCols := acc.cols.list()
	newCols := without(dim.DimCols, accCols)

	stmt := sq.Select(columns(
		d.projectAll(accAlias, accCols),
		d.projectAll(dimAlias, newCols),
		d.projectAll(accAlias, measures),
	)...).FromSelect(dim.stmt, dimAlias)
	stmt = d.joinOn(stmt, dimAlias, render(acc.stmt), accAlias, []string{dim.ForeignKey})

	cols := newColumnSet(accCols...)
	cols.add(newCols...)
	return foldState{stmt: stmt, cols: cols, alias: acc.alias + 2}
}

// cutPredicates renders the fact-grain WHERE predicates. External cuts become
// membership tests against the dimension key; a cut without members only
// requires that the key exists in the dimension.
func cutPredicates(cls Classification) []string {
	var preds []string
	for _, cut := range cls.InlineCuts {
		if len(cut.Members) == 0 {
			continue
		}
		preds = append(preds, cut.Predicate())
	}
	for _, cut := range cls.ExternalCuts {
		keys := sq.Select(cut.PrimaryKey).From(fromClause(cut.Source))
		if len(cut.Members) > 0 {
			keys = keys.Where(sq.Expr(cut.Predicate()))
		}
		preds = append(preds, cut.ForeignKey+" IN ("+render(keys)+")")
	}
	return preds
}
