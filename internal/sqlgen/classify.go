package sqlgen

import "cubesql/internal/domain"

// Classification partitions a query's cuts and drilldowns. Inline entries are
// resolved from fact table columns; external entries need a subquery.
type Classification struct {
	InlineCuts     []domain.CutSql
	ExternalCuts   []domain.CutSql
	InlineDrills   []domain.DrilldownSql
	ExternalDrills []domain.DrilldownSql
}

// Classify splits cuts and drilldowns by whether they live on the fact table.
// Relative order within each partition is preserved.
func Classify(fact domain.TableSql, cuts []domain.CutSql, drills []domain.DrilldownSql) Classification {
	var c Classification
	for _, cut := range cuts {
		if isInline(fact, cut.Source) {
			c.InlineCuts = append(c.InlineCuts, cut)
		} else {
			c.ExternalCuts = append(c.ExternalCuts, cut)
		}
	}
	for _, drill := range drills {
		if isInline(fact, drill.Source) {
			c.InlineDrills = append(c.InlineDrills, drill)
		} else {
			c.ExternalDrills = append(c.ExternalDrills, drill)
		}
	}
	return c
}

// isInline reports whether src is the fact table itself. An inline table is
// always external, even when its alias matches the fact table name.
func isInline(fact domain.TableSql, src domain.TableSource) bool {
	switch s := src.(type) {
	case domain.Table:
		return s.Name == fact.Name
	case *domain.Table:
		return s != nil && s.Name == fact.Name
	case domain.InlineTable, *domain.InlineTable:
		return false
	default:
		return false
	}
}
