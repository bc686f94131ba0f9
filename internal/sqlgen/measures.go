package sqlgen

import (
	"cubesql/internal/domain"
)

// pass1Measure renders the fact-grain aggregation of measure i. Averages are
// split into a sum and a count so they can be re-aggregated without averaging
// averages.
func pass1Measure(m domain.MeasureSql, i int) []string {
	alias := MeasureAlias(i)
	switch m.Aggregator {
	case domain.AggAverage:
		return []string{
			"sum(" + m.Column + ") AS " + alias + "_sum",
			"count(" + m.Column + ") AS " + alias + "_count",
		}
	case domain.AggCount:
		return []string{"count(" + m.Column + ") AS " + alias}
	case domain.AggMax:
		return []string{"max(" + m.Column + ") AS " + alias}
	case domain.AggMin:
		return []string{"min(" + m.Column + ") AS " + alias}
	default:
		return []string{"sum(" + m.Column + ") AS " + alias}
	}
}

// carriedMeasure lists the columns measure i occupies between the fact-grain
// query and the final re-aggregation.
func carriedMeasure(m domain.MeasureSql, i int) []string {
	alias := MeasureAlias(i)
	if m.Aggregator == domain.AggAverage {
		return []string{alias + "_sum", alias + "_count"}
	}
	return []string{alias}
}

// pass2Measure renders the re-aggregation of measure i under finalAlias.
func (d *Dialect) pass2Measure(m domain.MeasureSql, i int, finalAlias string) string {
	alias := MeasureAlias(i)
	var expr string
	switch m.Aggregator {
	case domain.AggAverage:
		expr = d.divide("sum("+alias+"_sum)", "sum("+alias+"_count)")
	case domain.AggMax:
		expr = "max(" + alias + ")"
	case domain.AggMin:
		expr = "min(" + alias + ")"
	default:
		// sum and count both re-aggregate by summing
		expr = "sum(" + alias + ")"
	}
	return expr + " AS " + finalAlias
}
