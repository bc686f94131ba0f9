package querydoc

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubesql/internal/domain"
)

func TestLoad_YAMLFile(t *testing.T) {
	doc, err := Load(filepath.Join("testdata", "sales_by_group.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", doc.Dialect)

	q, err := doc.ToQuery()
	require.NoError(t, err)

	assert.Equal(t, domain.TableSql{Name: "sales", PrimaryKey: "product_id"}, q.Table)
	require.Len(t, q.Cuts, 1)
	assert.Equal(t, domain.Table{Name: "dim_geo"}, q.Cuts[0].Source)
	assert.Equal(t, domain.MemberText, q.Cuts[0].MemberType)
	assert.Equal(t, "country = 'France'", q.Cuts[0].Predicate())

	require.Len(t, q.Drills, 2)
	assert.Equal(t, []string{"year"}, q.Drills[0].Columns())
	assert.Equal(t, []string{"product_group_id", "product_group_label", "hexcode"}, q.Drills[1].Columns())

	assert.Equal(t, []domain.MeasureSql{
		{Aggregator: domain.AggSum, Column: "quantity"},
		{Aggregator: domain.AggAverage, Column: "price"},
	}, q.Measures)
	require.NotNil(t, q.Sort)
	assert.Equal(t, domain.SortDesc, q.Sort.Direction)
	assert.Empty(t, q.Sort.Columns)
	assert.Equal(t, &domain.LimitSql{N: 10}, q.Limit)
	assert.Nil(t, q.Rca)
	assert.Nil(t, q.Growth)
}

func TestDecode_JSON(t *testing.T) {
	body := `{
		"table": {"name": "sales"},
		"measures": [{"aggregator": "count", "column": "order_id"}],
		"rca": {
			"drill_1": [{"table": "dim_geo", "foreign_key": "geo_id", "primary_key": "id", "levels": [{"key": "country"}]}],
			"drill_2": [{"table": "dim_products", "foreign_key": "product_id", "primary_key": "product_id", "levels": [{"key": "product_group_id"}]}],
			"measure": {"aggregator": "sum", "column": "quantity"}
		},
		"growth": {"time_drill": {"table": "sales", "levels": [{"key": "year"}]}, "measure_index": 0},
		"top": {"n": 3, "by": "country", "sort_columns": ["rca"], "direction": "desc"},
		"top_where": {"by": "rca", "comparison": "gt", "value": 1.5},
		"cuts": [{
			"inline_table": {"alias": "vip", "columns": ["id"], "rows": [["10"], ["11"]]},
			"foreign_key": "customer_id", "primary_key": "id", "column": "id", "exclude": true, "members": ["10"]
		}]
	}`
	doc, err := Decode(strings.NewReader(body), FormatJSON)
	require.NoError(t, err)
	q, err := doc.ToQuery()
	require.NoError(t, err)

	require.NotNil(t, q.Rca)
	assert.Equal(t, "country", q.Rca.Drill1[0].LevelColumns[0].KeyColumn)
	assert.Equal(t, domain.AggSum, q.Rca.Mea.Aggregator)
	require.NotNil(t, q.Growth)
	assert.Equal(t, []string{"year"}, q.Growth.TimeDrill.KeyColumns())
	assert.Equal(t, &domain.TopSql{N: 3, ByColumn: "country", SortColumns: []string{"rca"}, SortDirection: domain.SortDesc}, q.Top)
	assert.Equal(t, &domain.TopWhereSql{ByColumn: "rca", Comparison: domain.CompareGt, Value: 1.5}, q.TopWhere)

	require.Len(t, q.Cuts, 1)
	inline, ok := q.Cuts[0].Source.(domain.InlineTable)
	require.True(t, ok)
	assert.Equal(t, "SELECT 10 AS id UNION ALL SELECT 11 AS id", inline.SQL)
	assert.Equal(t, domain.MaskExclude, q.Cuts[0].Mask)
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"table": {"name": "sales"}, "having": "x"}`), FormatJSON)
	assertValidation(t, err, "having")

	_, err = Decode(strings.NewReader("table:\n  name: sales\nhaving: x\n"), FormatYAML)
	assertValidation(t, err, "having")

	_, err = Decode(strings.NewReader(""), FormatYAML)
	assertValidation(t, err, "empty document")

	_, err = Decode(strings.NewReader("{}"), Format("toml"))
	assertValidation(t, err, "toml")
}

func TestToQuery_Errors(t *testing.T) {
	geo := Drilldown{Source: Source{Table: "dim_geo"}, Levels: []Level{{Key: "country"}}}

	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{"missing table", Document{}, "table.name is required"},
		{"bad aggregator", Document{Table: FactTable{Name: "s"}, Measures: []Measure{{Aggregator: "median", Column: "x"}}}, "measures[0]: unknown aggregator"},
		{"measure column", Document{Table: FactTable{Name: "s"}, Measures: []Measure{{Aggregator: "sum"}}}, "measures[0]: column is required"},
		{"no source", Document{Table: FactTable{Name: "s"}, Drilldowns: []Drilldown{{Levels: []Level{{Key: "k"}}}}}, "drilldowns[0]: one of table or inline_table"},
		{"two sources", Document{Table: FactTable{Name: "s"}, Cuts: []Cut{{Source: Source{Table: "t", InlineTable: &InlineTable{Alias: "a", SQL: "SELECT 1"}}, Column: "c"}}}, "mutually exclusive"},
		{"no levels", Document{Table: FactTable{Name: "s"}, Drilldowns: []Drilldown{{Source: Source{Table: "t"}}}}, "at least one level"},
		{"member type", Document{Table: FactTable{Name: "s"}, Cuts: []Cut{{Source: Source{Table: "t"}, Column: "c", MemberType: "blob"}}}, "cuts[0]: unknown member type"},
		{"ragged rows", Document{Table: FactTable{Name: "s"}, Cuts: []Cut{{Source: Source{InlineTable: &InlineTable{Alias: "a", Columns: []string{"x", "y"}, Rows: [][]string{{"1"}}}}, Column: "x"}}}, "has 1 values, want 2"},
		{"sort direction", Document{Table: FactTable{Name: "s"}, Sort: &Sort{Direction: "sideways"}}, "sort: unknown sort direction"},
		{"comparison", Document{Table: FactTable{Name: "s"}, TopWhere: &TopWhere{By: "x", Comparison: "~"}}, "top_where: unknown comparison"},
		{"rca drill", Document{Table: FactTable{Name: "s"}, Rca: &Rca{Drill1: []Drilldown{geo}, Drill2: []Drilldown{{}}}}, "rca.drill_2[0]"},
		{"growth drill", Document{Table: FactTable{Name: "s"}, Growth: &Growth{}}, "growth.time_drill"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.doc.ToQuery()
			assertValidation(t, err, tc.want)
		})
	}
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("q.JSON"))
	assert.Equal(t, FormatYAML, FormatForPath("q.yml"))
	assert.Equal(t, FormatYAML, FormatForPath("q"))
}

func TestLoad_StdinSniffsJSON(t *testing.T) {
	doc, err := Load("-", strings.NewReader(` {"table": {"name": "sales"}}`))
	require.NoError(t, err)
	assert.Equal(t, "sales", doc.Table.Name)

	doc, err = Load("-", strings.NewReader("table: {name: orders}\n"))
	require.NoError(t, err)
	assert.Equal(t, "orders", doc.Table.Name)
}

func assertValidation(t *testing.T, err error, contains string) {
	t.Helper()
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "want validation error, got %v", err)
	assert.Contains(t, verr.Message, contains)
}
