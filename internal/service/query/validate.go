package query

import (
	"fmt"
	"slices"

	"cubesql/internal/domain"
	"cubesql/internal/sqlgen"
)

// Validate enforces the preconditions the compiler relies on. The compiler
// itself never fails, so anything it cannot express is rejected here.
func (s *Service) Validate(q *domain.Query) error {
	if q == nil {
		return domain.ErrValidation("query is required")
	}
	if q.Table.Name == "" {
		return domain.ErrValidation("fact table name is required")
	}
	if len(q.Measures) == 0 && q.Rca == nil {
		return domain.ErrValidation("at least one measure is required")
	}
	for i, m := range q.Measures {
		if !m.Aggregator.Valid() {
			return domain.ErrValidation("measures[%d]: unknown aggregator %q", i, m.Aggregator)
		}
		if m.Column == "" {
			return domain.ErrValidation("measures[%d]: column is required", i)
		}
	}

	if err := checkDimensions(q.Table, q.Cuts, q.Drills, "drilldowns"); err != nil {
		return err
	}

	for i, h := range q.HiddenDrills {
		cls := sqlgen.Classify(q.Table, nil, []domain.DrilldownSql{h.Drilldown})
		if len(cls.InlineDrills) != 1 {
			return domain.ErrValidation("hidden_drilldowns[%d]: must be a column of fact table %q", i, q.Table.Name)
		}
	}

	if q.Rca != nil {
		if len(q.Rca.Drill1) == 0 || len(q.Rca.Drill2) == 0 {
			return domain.ErrValidation("rca: drill_1 and drill_2 must both be non-empty")
		}
		if !q.Rca.Mea.Aggregator.Valid() || q.Rca.Mea.Column == "" {
			return domain.ErrValidation("rca: measure needs an aggregator and a column")
		}
		if len(q.HiddenDrills) > 0 {
			return domain.ErrValidation("rca: hidden drilldowns are not supported with a relative comparison")
		}
		if err := checkDimensions(q.Table, nil, q.Rca.Drill1, "rca.drill_1"); err != nil {
			return err
		}
		if err := checkDimensions(q.Table, nil, q.Rca.Drill2, "rca.drill_2"); err != nil {
			return err
		}
		all := append(append(append([]domain.DrilldownSql(nil), q.Drills...), q.Rca.Drill1...), q.Rca.Drill2...)
		if err := checkSharedColumns(q.Table, all, "rca"); err != nil {
			return err
		}
	} else if err := checkSharedColumns(q.Table, q.Drills, "drilldowns"); err != nil {
		return err
	}

	if q.Growth != nil {
		if q.Growth.MeasureIndex < 0 || q.Growth.MeasureIndex >= len(q.Measures) {
			return domain.ErrValidation("growth: measure_index %d out of range (%d measures)", q.Growth.MeasureIndex, len(q.Measures))
		}
		if len(q.Growth.TimeDrill.LevelColumns) == 0 {
			return domain.ErrValidation("growth: time drill needs at least one level")
		}
	}

	if q.Top != nil && q.Top.N == 0 {
		return domain.ErrValidation("top: n must be positive")
	}
	if q.Limit != nil && q.Limit.N == 0 {
		return domain.ErrValidation("limit: n must be positive")
	}
	return nil
}

// checkDimensions requires join keys on every cut and drilldown that does not
// live on the fact table.
func checkDimensions(fact domain.TableSql, cuts []domain.CutSql, drills []domain.DrilldownSql, field string) error {
	for _, cut := range cuts {
		if cut.Source == nil {
			return domain.ErrValidation("cut on %q: source table is required", cut.Column)
		}
	}
	for i, d := range drills {
		if d.Source == nil {
			return domain.ErrValidation("%s[%d]: source table is required", field, i)
		}
		if len(d.LevelColumns) == 0 {
			return domain.ErrValidation("%s[%d]: at least one level is required", field, i)
		}
	}

	c := sqlgen.Classify(fact, cuts, drills)
	for _, cut := range c.ExternalCuts {
		if cut.ForeignKey == "" || cut.PrimaryKey == "" {
			return domain.ErrValidation("cut on %q: foreign_key and primary_key are required for table %q", cut.Column, cut.Source.TableName())
		}
	}
	for _, d := range c.ExternalDrills {
		if d.ForeignKey == "" || d.PrimaryKey == "" {
			return domain.ErrValidation("%s: foreign_key and primary_key are required for table %q", field, d.Source.TableName())
		}
	}
	return nil
}

// checkSharedColumns rejects a column that an external drilldown projects
// when another drilldown projects it too: both sides of a join would carry it.
// Drilldowns on the fact table may repeat columns since they read the same
// column.
func checkSharedColumns(fact domain.TableSql, drills []domain.DrilldownSql, field string) error {
	cls := sqlgen.Classify(fact, nil, drills)

	onFact := map[string]bool{}
	for _, d := range cls.InlineDrills {
		for _, col := range d.Columns() {
			onFact[col] = true
		}
	}

	owner := map[string]string{}
	for _, d := range cls.ExternalDrills {
		name := fmt.Sprintf("%s via %s", d.Source.TableName(), d.ForeignKey)
		own := map[string]bool{}
		for _, col := range d.Columns() {
			if onFact[col] {
				return domain.ErrValidation("%s: column %q of %s is also drilled on fact table %q", field, col, name, fact.Name)
			}
			if prev, ok := owner[col]; ok && !own[col] {
				return domain.ErrValidation("%s: column %q is drilled on both %s and %s; use distinct level columns", field, col, prev, name)
			}
			owner[col] = name
			own[col] = true
		}
	}
	return nil
}

// checkOptionColumns verifies that growth and the outer clauses only refer to
// columns the compiled relation projects.
func checkOptionColumns(q *domain.Query, rel sqlgen.Relation) error {
	cols := rel.Columns()

	if q.Growth != nil {
		for _, c := range q.Growth.TimeDrill.Columns() {
			if !slices.Contains(rel.Drills, c) {
				return domain.ErrValidation("growth: time drill column %q is not drilled on (drill columns %s)", c, quoteList(rel.Drills))
			}
		}
	}

	check := func(field, col string) error {
		if col != "" && !slices.Contains(cols, col) {
			return domain.ErrValidation("%s: unknown column %q (available %s)", field, col, quoteList(cols))
		}
		return nil
	}

	if q.Top != nil {
		if err := check("top.by", q.Top.ByColumn); err != nil {
			return err
		}
		for _, c := range q.Top.SortColumns {
			if err := check("top.sort_columns", c); err != nil {
				return err
			}
		}
	}
	if q.TopWhere != nil {
		if err := check("top_where.by", q.TopWhere.ByColumn); err != nil {
			return err
		}
	}
	if q.Sort != nil {
		for _, c := range q.Sort.Columns {
			if err := check("sort.columns", c); err != nil {
				return err
			}
		}
	}
	return nil
}
