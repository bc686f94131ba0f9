package querydoc

import (
	"cubesql/internal/domain"
)

// ToQuery converts the document into a compiler query. Structural problems
// (missing names, unknown enum values, ambiguous sources) are reported as
// *domain.ValidationError.
func (d *Document) ToQuery() (*domain.Query, error) {
	if d.Table.Name == "" {
		return nil, domain.ErrValidation("table.name is required")
	}

	q := &domain.Query{
		Table: domain.TableSql{Name: d.Table.Name, PrimaryKey: d.Table.PrimaryKey},
	}

	for i, c := range d.Cuts {
		cut, err := c.toCut()
		if err != nil {
			return nil, domain.ErrValidation("cuts[%d]: %s", i, err.Error())
		}
		q.Cuts = append(q.Cuts, cut)
	}

	drills, err := toDrills("drilldowns", d.Drilldowns)
	if err != nil {
		return nil, err
	}
	q.Drills = drills

	for i, m := range d.Measures {
		mea, err := m.toMeasure()
		if err != nil {
			return nil, domain.ErrValidation("measures[%d]: %s", i, err.Error())
		}
		q.Measures = append(q.Measures, mea)
	}

	hidden, err := toDrills("hidden_drilldowns", d.HiddenDrilldowns)
	if err != nil {
		return nil, err
	}
	for _, h := range hidden {
		q.HiddenDrills = append(q.HiddenDrills, domain.HiddenDrilldownSql{Drilldown: h})
	}

	if d.Top != nil {
		dir, err := domain.ParseSortDirection(d.Top.Direction)
		if err != nil {
			return nil, domain.ErrValidation("top: %s", err.Error())
		}
		q.Top = &domain.TopSql{N: d.Top.N, ByColumn: d.Top.By, SortColumns: d.Top.SortColumns, SortDirection: dir}
	}

	if d.TopWhere != nil {
		if d.TopWhere.By == "" {
			return nil, domain.ErrValidation("top_where.by is required")
		}
		cmp, err := domain.ParseComparison(d.TopWhere.Comparison)
		if err != nil {
			return nil, domain.ErrValidation("top_where: %s", err.Error())
		}
		q.TopWhere = &domain.TopWhereSql{ByColumn: d.TopWhere.By, Comparison: cmp, Value: d.TopWhere.Value}
	}

	if d.Sort != nil {
		dir, err := domain.ParseSortDirection(d.Sort.Direction)
		if err != nil {
			return nil, domain.ErrValidation("sort: %s", err.Error())
		}
		q.Sort = &domain.SortSql{Columns: d.Sort.Columns, Direction: dir}
	}

	if d.Limit != nil {
		q.Limit = &domain.LimitSql{N: d.Limit.N, Offset: d.Limit.Offset}
	}

	if d.Rca != nil {
		drill1, err := toDrills("rca.drill_1", d.Rca.Drill1)
		if err != nil {
			return nil, err
		}
		drill2, err := toDrills("rca.drill_2", d.Rca.Drill2)
		if err != nil {
			return nil, err
		}
		mea, err := d.Rca.Measure.toMeasure()
		if err != nil {
			return nil, domain.ErrValidation("rca.measure: %s", err.Error())
		}
		q.Rca = &domain.RcaSql{Drill1: drill1, Drill2: drill2, Mea: mea}
	}

	if d.Growth != nil {
		td, err := d.Growth.TimeDrill.toDrill()
		if err != nil {
			return nil, domain.ErrValidation("growth.time_drill: %s", err.Error())
		}
		q.Growth = &domain.GrowthSql{TimeDrill: td, MeasureIndex: d.Growth.MeasureIndex}
	}

	return q, nil
}

func toDrills(field string, in []Drilldown) ([]domain.DrilldownSql, error) {
	var out []domain.DrilldownSql
	for i, dd := range in {
		drill, err := dd.toDrill()
		if err != nil {
			return nil, domain.ErrValidation("%s[%d]: %s", field, i, err.Error())
		}
		out = append(out, drill)
	}
	return out, nil
}

func (s Source) toSource() (domain.TableSource, error) {
	switch {
	case s.Table != "" && s.InlineTable != nil:
		return nil, domain.ErrValidation("table and inline_table are mutually exclusive")
	case s.Table != "":
		return domain.Table{Name: s.Table, Schema: s.Schema}, nil
	case s.InlineTable != nil:
		return s.InlineTable.toInline()
	}
	return nil, domain.ErrValidation("one of table or inline_table is required")
}

func (t *InlineTable) toInline() (domain.InlineTable, error) {
	if t.Alias == "" {
		return domain.InlineTable{}, domain.ErrValidation("inline_table.alias is required")
	}
	if t.SQL != "" {
		if len(t.Rows) > 0 {
			return domain.InlineTable{}, domain.ErrValidation("inline_table: sql and rows are mutually exclusive")
		}
		return domain.InlineTable{Alias: t.Alias, SQL: t.SQL}, nil
	}
	if len(t.Columns) == 0 || len(t.Rows) == 0 {
		return domain.InlineTable{}, domain.ErrValidation("inline_table: sql or columns and rows are required")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return domain.InlineTable{}, domain.ErrValidation("inline_table.rows[%d]: has %d values, want %d", i, len(row), len(t.Columns))
		}
	}
	return domain.NewInlineTable(t.Alias, t.Columns, t.Rows), nil
}

func (c Cut) toCut() (domain.CutSql, error) {
	src, err := c.toSource()
	if err != nil {
		return domain.CutSql{}, err
	}
	if c.Column == "" {
		return domain.CutSql{}, domain.ErrValidation("column is required")
	}
	mt, err := domain.ParseMemberType(c.MemberType)
	if err != nil {
		return domain.CutSql{}, err
	}
	mask := domain.MaskInclude
	if c.Exclude {
		mask = domain.MaskExclude
	}
	return domain.CutSql{
		ForeignKey: c.ForeignKey,
		PrimaryKey: c.PrimaryKey,
		Source:     src,
		Column:     c.Column,
		Members:    c.Members,
		MemberType: mt,
		Mask:       mask,
	}, nil
}

func (d Drilldown) toDrill() (domain.DrilldownSql, error) {
	src, err := d.toSource()
	if err != nil {
		return domain.DrilldownSql{}, err
	}
	if len(d.Levels) == 0 {
		return domain.DrilldownSql{}, domain.ErrValidation("at least one level is required")
	}
	levels := make([]domain.LevelColumn, len(d.Levels))
	for i, l := range d.Levels {
		if l.Key == "" {
			return domain.DrilldownSql{}, domain.ErrValidation("levels[%d].key is required", i)
		}
		levels[i] = domain.LevelColumn{KeyColumn: l.Key, NameColumn: l.Name}
	}
	return domain.DrilldownSql{
		ForeignKey:      d.ForeignKey,
		PrimaryKey:      d.PrimaryKey,
		Source:          src,
		LevelColumns:    levels,
		PropertyColumns: d.Properties,
	}, nil
}

func (m Measure) toMeasure() (domain.MeasureSql, error) {
	if m.Column == "" {
		return domain.MeasureSql{}, domain.ErrValidation("column is required")
	}
	agg, err := domain.ParseAggregator(m.Aggregator)
	if err != nil {
		return domain.MeasureSql{}, err
	}
	return domain.MeasureSql{Aggregator: agg, Column: m.Column}, nil
}
