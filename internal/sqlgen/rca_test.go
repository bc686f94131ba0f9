package sqlgen

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubesql/internal/domain"
)

func salesRca() domain.RcaSql {
	return domain.RcaSql{
		Drill1: []domain.DrilldownSql{dateDrill()},
		Drill2: []domain.DrilldownSql{productDrill()},
		Mea:    quantity(),
	}
}

func TestRca_ClickHouseNoCallerDrills(t *testing.T) {
	rel := New(ClickHouseDialect).Rca(salesTable(), nil, nil, nil, salesRca())

	productFact := "SELECT product_id, sum(quantity) AS m0 FROM sales GROUP BY product_id"
	allFact := "SELECT year, month, day, product_id, sum(quantity) AS m0 FROM sales GROUP BY year, month, day, product_id"
	productCols := "product_group_id, product_group_label, product_id_raw, product_label"

	a := "SELECT " + salesDrillCols + ", sum(m0) AS a FROM (SELECT year, month, day, product_id, " + productCols + ", m0 FROM (" +
		productDimSQL + ") AS alias_0 ALL INNER JOIN (" + allFact + ") AS alias_1 USING product_id) AS agg GROUP BY " + salesDrillCols
	b := "SELECT " + productCols + ", sum(m0) AS b FROM (SELECT product_id, " + productCols + ", m0 FROM (" +
		productDimSQL + ") AS alias_0 ALL INNER JOIN (" + productFact + ") AS alias_1 USING product_id) AS agg GROUP BY " + productCols
	c := "SELECT year, month, day, sum(m0) AS c FROM (SELECT year, month, day, sum(quantity) AS m0 FROM sales GROUP BY year, month, day) AS agg GROUP BY year, month, day"
	d := "SELECT sum(m0) AS d FROM (SELECT sum(quantity) AS m0 FROM sales) AS agg"

	ab := "SELECT " + salesDrillCols + ", a, b FROM (" + a + ") AS rca_a ALL INNER JOIN (" + b + ") AS rca_b USING " + productCols
	abc := "SELECT " + salesDrillCols + ", c, a, b FROM (" + c + ") AS rca_c ALL INNER JOIN (" + ab + ") AS rca_ab USING year, month, day"
	abcd := "SELECT " + salesDrillCols + ", d, c, a, b FROM (" + d + ") AS rca_d CROSS JOIN (" + abc + ") AS rca_abc"
	want := "SELECT " + salesDrillCols + ", ((a / b) / (c / d)) AS rca FROM (" + abcd + ") AS rca_result"

	assert.Equal(t, want, rel.SQL)
	assert.Equal(t, strings.Split(salesDrillCols, ", "), rel.Drills)
	assert.Equal(t, []string{"rca"}, rel.Values)
}

func TestRca_EmptyDrillArtifactsNeverEmitted(t *testing.T) {
	for _, d := range []*Dialect{ClickHouseDialect, DuckDBDialect, PostgresDialect} {
		t.Run(string(d.Type), func(t *testing.T) {
			rel := New(d).Rca(salesTable(), nil, nil, nil, salesRca())
			lower := strings.ToLower(rel.SQL)
			assert.NotContains(t, lower, "select , ")
			assert.NotContains(t, lower, "group by )")
			assert.NotContains(t, lower, ", from")
			assert.NotRegexp(t, regexp.MustCompile(`(?i)group by\s*$`), rel.SQL)
			assert.Contains(t, rel.SQL, "CROSS JOIN")
		})
	}
}

func TestRca_AliasRenaming(t *testing.T) {
	meas := []domain.MeasureSql{{Aggregator: domain.AggCount, Column: "order_id"}}
	rel := New(ClickHouseDialect).Rca(salesTable(), nil, nil, meas, salesRca())

	for _, letter := range []string{"a", "b", "c", "d"} {
		renamed := regexp.MustCompile(`sum\(m0\) AS ` + letter + `\b`)
		assert.Len(t, renamed.FindAllString(rel.SQL, -1), 1, letter)
	}
	assert.NotContains(t, rel.SQL, "final_m0")
	// caller measure keeps its shifted alias
	assert.Contains(t, rel.SQL, "sum(m1) AS final_m1")
	assert.True(t, strings.HasSuffix(rel.SQL[:strings.Index(rel.SQL, " FROM (")], "AS rca, final_m1"))
	assert.Equal(t, []string{"rca", "final_m1"}, rel.Values)
}

func TestRca_CallerDrillsJoinWithKeys(t *testing.T) {
	rel := New(ClickHouseDialect).Rca(salesTable(), nil, []domain.DrilldownSql{geoDrill()}, nil, salesRca())
	assert.NotContains(t, rel.SQL, "CROSS JOIN")
	assert.Contains(t, rel.SQL, "AS rca_d ALL INNER JOIN")
	assert.True(t, strings.HasSuffix(rel.SQL, "AS rca_abc USING country) AS rca_result"))
	assert.Equal(t, "country, "+salesDrillCols, rel.DrillList())
}

func TestRca_CutExclusion(t *testing.T) {
	yearCut := domain.CutSql{Source: domain.Table{Name: "sales"}, Column: "year", Members: []string{"2019"}}
	groupCut := productGroupCut("3")
	geoCut := domain.CutSql{ForeignKey: "geo_id", PrimaryKey: "id", Source: domain.Table{Name: "dim_geo"}, Column: "country", Members: []string{"'fr'"}}

	got := excludeCuts([]domain.CutSql{yearCut, groupCut, geoCut}, levelKeys(salesRca().Drill2))
	require.Len(t, got, 2)
	assert.Equal(t, "year", got[0].Column)
	assert.Equal(t, "country", got[1].Column)

	got = excludeCuts([]domain.CutSql{yearCut, groupCut, geoCut}, levelKeys(salesRca().Drill1, salesRca().Drill2))
	require.Len(t, got, 1)
	assert.Equal(t, "country", got[0].Column)

	rel := New(ClickHouseDialect).Rca(salesTable(), []domain.CutSql{yearCut, groupCut, geoCut}, nil, nil, salesRca())
	// year cut survives in a and c only
	assert.Equal(t, 2, strings.Count(rel.SQL, "year = 2019"))
	// product group is a drill_2 level: dropped everywhere
	assert.NotContains(t, rel.SQL, "product_group_id = 3")
	// unrelated cut applies to all four components
	assert.Equal(t, 4, strings.Count(rel.SQL, "geo_id IN (SELECT id FROM dim_geo WHERE country = 'fr')"))
}

func TestRca_PostgresQualifiesProjections(t *testing.T) {
	rel := New(PostgresDialect).Rca(salesTable(), nil, nil, nil, salesRca())
	assert.Contains(t, rel.SQL, "rca_a.year AS year")
	assert.Contains(t, rel.SQL, "ON rca_a.product_group_id = rca_b.product_group_id AND rca_a.product_group_label = rca_b.product_group_label")
	assert.Contains(t, rel.SQL, "ON rca_c.year = rca_ab.year AND rca_c.month = rca_ab.month AND rca_c.day = rca_ab.day")
	assert.Contains(t, rel.SQL, "(CAST((CAST(a AS DOUBLE PRECISION) / NULLIF(b, 0)) AS DOUBLE PRECISION) / NULLIF((CAST(c AS DOUBLE PRECISION) / NULLIF(d, 0)), 0)) AS rca")
}
