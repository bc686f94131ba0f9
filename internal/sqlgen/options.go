package sqlgen

import (
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"cubesql/internal/domain"
)

const topRankColumn = "top_rank"

// WrapOptions applies the optional outer clauses in a fixed order: top-n,
// top-n filter, sort, limit. Each configured clause wraps the previous stage;
// an absent clause emits nothing. A limit following a sort is attached to the
// sorting SELECT so the order survives.
func (c *Compiler) WrapOptions(
	rel Relation,
	top *domain.TopSql,
	topWhere *domain.TopWhereSql,
	sort *domain.SortSql,
	limit *domain.LimitSql,
) Relation {
	out := rel

	if top != nil {
		out = c.wrapTop(rel, out, *top)
	}

	if topWhere != nil {
		cond := topWhere.ByColumn + " " + string(topWhere.Comparison) + " " +
			strconv.FormatFloat(topWhere.Value, 'f', -1, 64)
		out = newRelation(out.selectFrom("top_where", "*").Where(sq.Expr(cond)), rel.Drills, rel.Values)
	}

	var sorted *sq.SelectBuilder
	if sort != nil {
		cols := sort.Columns
		if len(cols) == 0 {
			cols = rel.Drills
		}
		if len(cols) > 0 {
			stmt := out.selectFrom("sorted", "*").OrderBy(orderItems(cols, sort.Direction)...)
			sorted = &stmt
			out = newRelation(stmt, rel.Drills, rel.Values)
		}
	}

	if limit != nil {
		stmt := out.selectFrom("limited", "*")
		if sorted != nil {
			stmt = *sorted
		}
		stmt = stmt.Limit(limit.N)
		if limit.Offset > 0 {
			stmt = stmt.Offset(limit.Offset)
		}
		out = newRelation(stmt, rel.Drills, rel.Values)
	}

	return out
}

// wrapTop keeps the first N rows of every ByColumn group of in. The column
// list is taken from rel since in may be a SELECT *.
func (c *Compiler) wrapTop(rel, in Relation, top domain.TopSql) Relation {
	if c.dialect.LimitBy {
		stmt := in.selectFrom("top_base", "*").
			OrderBy(orderItems(top.SortColumns, top.SortDirection)...).
			Limit(top.N)
		if top.ByColumn != "" {
			stmt = stmt.Suffix("BY " + top.ByColumn)
		}
		return newRelation(stmt, rel.Drills, rel.Values)
	}

	var window []string
	if top.ByColumn != "" {
		window = append(window, "PARTITION BY "+top.ByColumn)
	}
	if len(top.SortColumns) > 0 {
		window = append(window, "ORDER BY "+strings.Join(orderItems(top.SortColumns, top.SortDirection), ", "))
	}
	cols := rel.Columns()
	rowNumber := "row_number() OVER (" + strings.Join(window, " ") + ") AS " + topRankColumn
	ranked := in.selectFrom("top_base", columns(cols, []string{rowNumber})...)
	stmt := sq.Select(cols...).
		FromSelect(ranked, "top_ranked").
		Where(sq.Expr(topRankColumn + " <= " + strconv.FormatUint(top.N, 10)))
	return newRelation(stmt, rel.Drills, rel.Values)
}

func orderItems(cols []string, dir domain.SortDirection) []string {
	items := make([]string, len(cols))
	for i, col := range cols {
		items[i] = col + " " + dir.String()
	}
	return items
}
