// Package querydoc defines the wire form of a query (JSON over HTTP, YAML on
// disk) and converts it into the compiler's domain.Query.
package querydoc

// Document is one query request.
type Document struct {
	// Dialect optionally overrides the server's default SQL dialect.
	Dialect          string      `json:"dialect,omitempty" yaml:"dialect,omitempty"`
	Table            FactTable   `json:"table" yaml:"table"`
	Cuts             []Cut       `json:"cuts,omitempty" yaml:"cuts,omitempty"`
	Drilldowns       []Drilldown `json:"drilldowns,omitempty" yaml:"drilldowns,omitempty"`
	Measures         []Measure   `json:"measures,omitempty" yaml:"measures,omitempty"`
	HiddenDrilldowns []Drilldown `json:"hidden_drilldowns,omitempty" yaml:"hidden_drilldowns,omitempty"`
	Top              *Top        `json:"top,omitempty" yaml:"top,omitempty"`
	TopWhere         *TopWhere   `json:"top_where,omitempty" yaml:"top_where,omitempty"`
	Sort             *Sort       `json:"sort,omitempty" yaml:"sort,omitempty"`
	Limit            *Limit      `json:"limit,omitempty" yaml:"limit,omitempty"`
	Rca              *Rca        `json:"rca,omitempty" yaml:"rca,omitempty"`
	Growth           *Growth     `json:"growth,omitempty" yaml:"growth,omitempty"`
}

// FactTable names the fact table.
type FactTable struct {
	Name       string `json:"name" yaml:"name"`
	PrimaryKey string `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
}

// Source locates a dimension's rows: a physical table (Table, optional
// Schema) or an inline table. Exactly one must be set.
type Source struct {
	Table       string       `json:"table,omitempty" yaml:"table,omitempty"`
	Schema      string       `json:"schema,omitempty" yaml:"schema,omitempty"`
	InlineTable *InlineTable `json:"inline_table,omitempty" yaml:"inline_table,omitempty"`
}

// InlineTable is either raw SQL or literal rows under an alias.
type InlineTable struct {
	Alias   string     `json:"alias" yaml:"alias"`
	SQL     string     `json:"sql,omitempty" yaml:"sql,omitempty"`
	Columns []string   `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty" yaml:"rows,omitempty"`
}

// Cut restricts a dimension to Members.
type Cut struct {
	Source     `yaml:",inline"`
	ForeignKey string   `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	PrimaryKey string   `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Column     string   `json:"column" yaml:"column"`
	Members    []string `json:"members,omitempty" yaml:"members,omitempty"`
	MemberType string   `json:"member_type,omitempty" yaml:"member_type,omitempty"`
	Exclude    bool     `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// Level is one hierarchy level.
type Level struct {
	Key  string `json:"key" yaml:"key"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Drilldown groups the result by a dimension hierarchy.
type Drilldown struct {
	Source     `yaml:",inline"`
	ForeignKey string   `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	PrimaryKey string   `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Levels     []Level  `json:"levels" yaml:"levels"`
	Properties []string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Measure is an aggregated fact column.
type Measure struct {
	Aggregator string `json:"aggregator" yaml:"aggregator"`
	Column     string `json:"column" yaml:"column"`
}

// Rca requests the relative comparison (a/b)/(c/d) of Measure.
type Rca struct {
	Drill1  []Drilldown `json:"drill_1" yaml:"drill_1"`
	Drill2  []Drilldown `json:"drill_2" yaml:"drill_2"`
	Measure Measure     `json:"measure" yaml:"measure"`
}

// Growth requests period-over-period change of one caller measure.
type Growth struct {
	TimeDrill    Drilldown `json:"time_drill" yaml:"time_drill"`
	MeasureIndex int       `json:"measure_index" yaml:"measure_index"`
}

// Top keeps the first N rows per By group.
type Top struct {
	N           uint64   `json:"n" yaml:"n"`
	By          string   `json:"by,omitempty" yaml:"by,omitempty"`
	SortColumns []string `json:"sort_columns,omitempty" yaml:"sort_columns,omitempty"`
	Direction   string   `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// TopWhere filters on a column after top-n selection.
type TopWhere struct {
	By         string  `json:"by" yaml:"by"`
	Comparison string  `json:"comparison" yaml:"comparison"`
	Value      float64 `json:"value" yaml:"value"`
}

// Sort orders the result; no columns means every drill column.
type Sort struct {
	Columns   []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	Direction string   `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Limit bounds the number of returned rows.
type Limit struct {
	N      uint64 `json:"n" yaml:"n"`
	Offset uint64 `json:"offset,omitempty" yaml:"offset,omitempty"`
}
