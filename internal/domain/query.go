package domain

import (
	"strings"
)

// Table is a physical table reference. Identity is compared by Name.
type Table struct {
	Name       string
	Schema     string // optional
	PrimaryKey string // optional
}

// FullName returns the schema-qualified table name.
func (t Table) FullName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// InlineTable is a self-contained subquery used in place of a physical table,
// typically for ephemeral filter sets. Alias is the name the subquery is
// exposed as.
type InlineTable struct {
	Alias string
	SQL   string
}

// TableSource is either a Table or an InlineTable.
type TableSource interface {
	// TableName is the name the source is referenced by in generated SQL.
	TableName() string
	// FromClause renders the source for use after FROM.
	FromClause() string

	tableSource()
}

// TableName implements TableSource.
func (t Table) TableName() string { return t.Name }

// FromClause implements TableSource.
func (t Table) FromClause() string { return t.FullName() }

func (Table) tableSource() {}

// TableName implements TableSource.
func (t InlineTable) TableName() string { return t.Alias }

// FromClause implements TableSource.
func (t InlineTable) FromClause() string { return "(" + t.SQL + ") AS " + t.Alias }

func (InlineTable) tableSource() {}

// NewInlineTable builds an inline table from literal rows. Each row must have
// one value per column; values are rendered verbatim, so text values must
// already carry their quotes.
func NewInlineTable(alias string, columns []string, rows [][]string) InlineTable {
	selects := make([]string, 0, len(rows))
	for _, row := range rows {
		parts := make([]string, len(columns))
		for i, col := range columns {
			parts[i] = row[i] + " AS " + col
		}
		selects = append(selects, "SELECT "+strings.Join(parts, ", "))
	}
	return InlineTable{Alias: alias, SQL: strings.Join(selects, " UNION ALL ")}
}

// TableSql is the fact table of a query.
type TableSql struct {
	Name       string
	PrimaryKey string // optional
}

// MeasureSql is an aggregated fact column. Its position in the measure list
// determines its generated alias.
type MeasureSql struct {
	Aggregator Aggregator
	Column     string
}

// MemberType controls whether cut members are quoted.
type MemberType int

// Member types.
const (
	MemberNonText MemberType = iota
	MemberText
)

// String returns the wire name of the member type.
func (t MemberType) String() string {
	if t == MemberText {
		return "text"
	}
	return "nontext"
}

// ParseMemberType parses a wire member type. The empty string is NonText.
func ParseMemberType(s string) (MemberType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nontext", "non_text", "number":
		return MemberNonText, nil
	case "text", "string":
		return MemberText, nil
	}
	return MemberNonText, ErrValidation("unknown member type %q", s)
}

// CutMask selects whether a cut keeps or removes its members.
type CutMask int

// Cut masks.
const (
	MaskInclude CutMask = iota
	MaskExclude
)

// LevelColumn is one hierarchy level. NameColumn is optional.
type LevelColumn struct {
	KeyColumn  string
	NameColumn string
}

// CutSql restricts a dimension to a set of members. Empty Members is the
// default-hierarchy case: only membership in the dimension table is required.
type CutSql struct {
	ForeignKey string
	PrimaryKey string
	Source     TableSource
	Column     string
	Members    []string
	MemberType MemberType
	Mask       CutMask
}

// MembersString renders the members as a comma separated SQL list.
func (c CutSql) MembersString() string {
	out := make([]string, len(c.Members))
	for i, m := range c.Members {
		if c.MemberType == MemberText {
			out[i] = "'" + strings.ReplaceAll(m, "'", "''") + "'"
		} else {
			out[i] = m
		}
	}
	return strings.Join(out, ", ")
}

// Predicate renders the cut's filter on its own column. It is only
// meaningful when Members is non-empty.
func (c CutSql) Predicate() string {
	if len(c.Members) == 1 {
		op := "="
		if c.Mask == MaskExclude {
			op = "<>"
		}
		return c.Column + " " + op + " " + c.MembersString()
	}
	op := "IN"
	if c.Mask == MaskExclude {
		op = "NOT IN"
	}
	return c.Column + " " + op + " (" + c.MembersString() + ")"
}

// DrilldownSql is a dimension hierarchy requested for grouping and output.
type DrilldownSql struct {
	ForeignKey      string
	PrimaryKey      string
	Source          TableSource
	LevelColumns    []LevelColumn
	PropertyColumns []string
}

// Columns returns the drilldown's projected columns: each level's key and
// optional name column, coarsest first, followed by property columns.
func (d DrilldownSql) Columns() []string {
	cols := make([]string, 0, 2*len(d.LevelColumns)+len(d.PropertyColumns))
	for _, l := range d.LevelColumns {
		cols = append(cols, l.KeyColumn)
		if l.NameColumn != "" {
			cols = append(cols, l.NameColumn)
		}
	}
	return append(cols, d.PropertyColumns...)
}

// KeyColumns returns only the level key columns.
func (d DrilldownSql) KeyColumns() []string {
	keys := make([]string, len(d.LevelColumns))
	for i, l := range d.LevelColumns {
		keys[i] = l.KeyColumn
	}
	return keys
}

// HiddenDrilldownSql is grouped on at fact grain but never projected.
type HiddenDrilldownSql struct {
	Drilldown DrilldownSql
}

// RcaSql configures a relative comparison ((a/b)/(c/d)).
type RcaSql struct {
	Drill1 []DrilldownSql
	Drill2 []DrilldownSql
	Mea    MeasureSql
}

// GrowthSql configures a period-over-period computation. MeasureIndex
// indexes the caller's measure list.
type GrowthSql struct {
	TimeDrill    DrilldownSql
	MeasureIndex int
}

// SortDirection is ascending or descending.
type SortDirection int

// Sort directions.
const (
	SortAsc SortDirection = iota
	SortDesc
)

// String renders the direction as a SQL keyword.
func (d SortDirection) String() string {
	if d == SortDesc {
		return "DESC"
	}
	return "ASC"
}

// ParseSortDirection parses "asc"/"desc". The empty string is ascending.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return SortAsc, nil
	case "desc", "descending":
		return SortDesc, nil
	}
	return SortAsc, ErrValidation("unknown sort direction %q", s)
}

// TopSql keeps the first N rows of each ByColumn group, ordered by
// SortColumns. An empty ByColumn applies to the whole result.
type TopSql struct {
	N             uint64
	ByColumn      string
	SortColumns   []string
	SortDirection SortDirection
}

// Comparison is a TopWhereSql operator.
type Comparison string

// Comparisons.
const (
	CompareEq  Comparison = "="
	CompareNeq Comparison = "<>"
	CompareLt  Comparison = "<"
	CompareLte Comparison = "<="
	CompareGt  Comparison = ">"
	CompareGte Comparison = ">="
)

// ParseComparison accepts symbolic and mnemonic operators (eq, lt, gte...).
func ParseComparison(s string) (Comparison, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "=", "==", "eq":
		return CompareEq, nil
	case "<>", "!=", "neq":
		return CompareNeq, nil
	case "<", "lt":
		return CompareLt, nil
	case "<=", "lte":
		return CompareLte, nil
	case ">", "gt":
		return CompareGt, nil
	case ">=", "gte":
		return CompareGte, nil
	}
	return "", ErrValidation("unknown comparison %q", s)
}

// TopWhereSql filters rows after top-N selection.
type TopWhereSql struct {
	ByColumn   string
	Comparison Comparison
	Value      float64
}

// SortSql orders the result. Empty Columns sorts by every drill column.
type SortSql struct {
	Columns   []string
	Direction SortDirection
}

// LimitSql restricts the number of rows returned.
type LimitSql struct {
	N      uint64
	Offset uint64
}

// Query is the full, pre-validated input of one compilation.
type Query struct {
	Table        TableSql
	Cuts         []CutSql
	Drills       []DrilldownSql
	Measures     []MeasureSql
	HiddenDrills []HiddenDrilldownSql
	Top          *TopSql
	TopWhere     *TopWhereSql
	Sort         *SortSql
	Limit        *LimitSql
	Rca          *RcaSql
	Growth       *GrowthSql
}
