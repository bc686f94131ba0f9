package sqlgen

import (
	"slices"

	sq "github.com/Masterminds/squirrel"

	"cubesql/internal/domain"
)

// DimSubquery is a joinable unit built from one external drilldown. SQL
// projects the drilldown columns plus the dimension key renamed to the fact
// table's foreign key, so the join can use the foreign key name on both sides.
type DimSubquery struct {
	SQL        string
	ForeignKey string
	DimCols    []string

	stmt sq.SelectBuilder
}

// dimSubquery builds the subquery for an external drilldown.
func dimSubquery(drill domain.DrilldownSql) DimSubquery {
	cols := drill.Columns()
	items := append([]string(nil), cols...)
	if !(drill.PrimaryKey == drill.ForeignKey && slices.Contains(cols, drill.ForeignKey)) {
		items = append(items, drill.PrimaryKey+" AS "+drill.ForeignKey)
	}
	stmt := sq.Select(items...).From(fromClause(drill.Source))
	return DimSubquery{
		SQL:        render(stmt),
		ForeignKey: drill.ForeignKey,
		DimCols:    cols,
		stmt:       stmt,
	}
}

// OrderJoins builds one DimSubquery per external drilldown and orders them for
// the join fold. Subqueries are taken from the back of the input, then the one
// whose foreign key matches the fact table's primary key, if any, is swapped
// to the front so the store joins on its own key first.
func OrderJoins(fact domain.TableSql, extDrills []domain.DrilldownSql) []DimSubquery {
	subqueries := make([]DimSubquery, 0, len(extDrills))
	for i := len(extDrills) - 1; i >= 0; i-- {
		subqueries = append(subqueries, dimSubquery(extDrills[i]))
	}

	if fact.PrimaryKey != "" {
		for i, sub := range subqueries {
			if sub.ForeignKey == fact.PrimaryKey {
				subqueries[0], subqueries[i] = subqueries[i], subqueries[0]
				break
			}
		}
	}
	return subqueries
}

func fromClause(src domain.TableSource) string {
	if src == nil {
		return ""
	}
	return src.FromClause()
}
