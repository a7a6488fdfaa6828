package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/voltlens/internal/dataset"
)

// NumSummary aggregates one column within one group.
type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// GroupStats holds per-column aggregates for one working ion.
type GroupStats struct {
	Ion     string
	Size    int
	Metrics map[string]NumSummary
}

// LongRow is one (ion, measure) observation of a reshaped group table.
type LongRow struct {
	Ion     string
	Measure string
	Value   float64
}

// GroupByIon aggregates the listed columns per working ion. When filter
// is true each column is IQR-filtered inside its group before aggregation.
// Groups are returned in ion symbol order.
func GroupByIon(t *dataset.Table, columns []string, filter bool) []GroupStats {
	groups := t.GroupByIon()
	out := make([]GroupStats, 0, len(groups))
	for _, ion := range t.Ions() {
		g := groups[ion]
		gs := GroupStats{Ion: ion, Size: g.Len(), Metrics: map[string]NumSummary{}}
		for _, c := range columns {
			vals := sortedFinite(g.Column(c))
			if filter {
				vals = FilterValues(vals)
			}
			if len(vals) == 0 {
				continue
			}
			gs.Metrics[c] = NumSummary{
				Count: len(vals),
				Min:   floats.Min(vals),
				Max:   floats.Max(vals),
				Mean:  stat.Mean(vals, nil),
			}
		}
		out = append(out, gs)
	}
	return out
}

// Long reshapes group means to one row per (ion, column). Groups lacking
// a column are skipped rather than emitted as NaN.
func Long(groups []GroupStats, columns []string) []LongRow {
	var out []LongRow
	for _, g := range groups {
		for _, c := range columns {
			m, ok := g.Metrics[c]
			if !ok || math.IsNaN(m.Mean) {
				continue
			}
			out = append(out, LongRow{Ion: g.Ion, Measure: c, Value: m.Mean})
		}
	}
	return out
}
