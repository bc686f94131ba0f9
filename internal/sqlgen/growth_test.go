package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cubesql/internal/domain"
)

func yearDrill() domain.DrilldownSql {
	return domain.DrilldownSql{
		Source:       domain.Table{Name: "sales"},
		LevelColumns: []domain.LevelColumn{{KeyColumn: "year"}},
	}
}

func TestGrowth_ClickHouse(t *testing.T) {
	base := Relation{SQL: "SELECT year, country, final_m0 FROM t", Drills: []string{"year", "country"}, Values: []string{"final_m0"}}
	rel := New(ClickHouseDialect).Growth(base, domain.GrowthSql{TimeDrill: yearDrill()}, "final_m0")

	current := "SELECT year, country, final_m0, dense_rank() OVER (ORDER BY year) AS growth_rank FROM (" + base.SQL + ") AS growth_base"
	previous := "SELECT country, final_m0 AS growth_prev, dense_rank() OVER (ORDER BY year) + 1 AS growth_rank FROM (" + base.SQL + ") AS growth_base"
	want := "SELECT year, country, final_m0, (final_m0 - growth_prev) AS growth_value," +
		" ((final_m0 - growth_prev) / NULLIF(growth_prev, 0)) AS growth_pct" +
		" FROM (" + current + ") AS growth_cur ALL INNER JOIN (" + previous + ") AS growth_last USING country, growth_rank"

	assert.Equal(t, want, rel.SQL)
	assert.Equal(t, base.Drills, rel.Drills)
	assert.Equal(t, []string{"final_m0", "growth_value", "growth_pct"}, rel.Values)
}

func TestGrowth_PostgresQualified(t *testing.T) {
	base := Relation{SQL: "SELECT year, country, final_m0 FROM t", Drills: []string{"year", "country"}, Values: []string{"final_m0"}}
	rel := New(PostgresDialect).Growth(base, domain.GrowthSql{TimeDrill: yearDrill()}, "final_m0")

	assert.Contains(t, rel.SQL, "SELECT growth_cur.year AS year, growth_cur.country AS country, growth_cur.final_m0 AS final_m0,"+
		" (growth_cur.final_m0 - growth_last.growth_prev) AS growth_value,"+
		" (CAST((growth_cur.final_m0 - growth_last.growth_prev) AS DOUBLE PRECISION) / NULLIF(growth_last.growth_prev, 0)) AS growth_pct")
	assert.Contains(t, rel.SQL, "ON growth_cur.country = growth_last.country AND growth_cur.growth_rank = growth_last.growth_rank")
}

func TestGrowth_OnlyTimeDrill(t *testing.T) {
	base := Relation{SQL: "SELECT year, final_m0 FROM t", Drills: []string{"year"}, Values: []string{"final_m0"}}
	rel := New(DuckDBDialect).Growth(base, domain.GrowthSql{TimeDrill: yearDrill()}, "final_m0")
	assert.Contains(t, rel.SQL, "SELECT final_m0 AS growth_prev, dense_rank() OVER (ORDER BY year) + 1 AS growth_rank")
	assert.Contains(t, rel.SQL, "AS growth_last USING (growth_rank)")
}

func TestCompile_GrowthMeasureIndex(t *testing.T) {
	q := &domain.Query{
		Table:    salesTable(),
		Drills:   []domain.DrilldownSql{yearDrill()},
		Measures: []domain.MeasureSql{quantity(), {Aggregator: domain.AggSum, Column: "revenue"}},
		Growth:   &domain.GrowthSql{TimeDrill: yearDrill(), MeasureIndex: 1},
	}
	c := New(ClickHouseDialect)
	rel := c.Compile(q)
	assert.Contains(t, rel.SQL, "final_m1 AS growth_prev")
	assert.Equal(t, []string{"final_m0", "final_m1", "growth_value", "growth_pct"}, rel.Values)

	// with a relative comparison slot 0 is the ratio, caller measures shift up
	q.Rca = &domain.RcaSql{Drill1: []domain.DrilldownSql{productDrill()}, Drill2: []domain.DrilldownSql{geoDrill()}, Mea: quantity()}
	q.Growth.MeasureIndex = 0
	rel = c.Compile(q)
	assert.Contains(t, rel.SQL, "final_m1 AS growth_prev")
	assert.Equal(t, []string{"rca", "final_m1", "final_m2", "growth_value", "growth_pct"}, rel.Values)
}
