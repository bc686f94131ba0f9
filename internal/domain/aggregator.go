package domain

import "strings"

// Aggregator is the aggregation applied to a measure column.
type Aggregator string

// Supported aggregators.
const (
	AggSum     Aggregator = "sum"
	AggCount   Aggregator = "count"
	AggAverage Aggregator = "avg"
	AggMax     Aggregator = "max"
	AggMin     Aggregator = "min"
)

// ParseAggregator parses an aggregator name, accepting a few common aliases.
func ParseAggregator(s string) (Aggregator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum":
		return AggSum, nil
	case "count":
		return AggCount, nil
	case "avg", "average", "mean":
		return AggAverage, nil
	case "max", "maximum":
		return AggMax, nil
	case "min", "minimum":
		return AggMin, nil
	}
	return "", ErrValidation("unknown aggregator %q", s)
}

// Valid reports whether a is one of the supported aggregators.
func (a Aggregator) Valid() bool {
	switch a {
	case AggSum, AggCount, AggAverage, AggMax, AggMin:
		return true
	}
	return false
}
