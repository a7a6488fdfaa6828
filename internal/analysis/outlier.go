package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/voltlens/internal/dataset"
)

// IQRMultiplier is the fence width in interquartile ranges.
const IQRMultiplier = 1.5

// Bounds is the Tukey fence of one numeric column.
type Bounds struct {
	Q1, Q3       float64
	IQR          float64
	Lower, Upper float64
	// N is the number of non-NaN values the fence was computed from.
	N int
}

// IQRBounds computes the 1.5×IQR fence. NaNs are ignored; an all-NaN or
// empty column yields a fence that contains nothing.
func IQRBounds(values []float64) Bounds {
	s := sortedFinite(values)
	if len(s) == 0 {
		nan := math.NaN()
		return Bounds{Q1: nan, Q3: nan, IQR: nan, Lower: nan, Upper: nan}
	}
	q1 := quantile(s, 0.25)
	q3 := quantile(s, 0.75)
	iqr := q3 - q1
	return Bounds{
		Q1:    q1,
		Q3:    q3,
		IQR:   iqr,
		Lower: q1 - IQRMultiplier*iqr,
		Upper: q3 + IQRMultiplier*iqr,
		N:     len(s),
	}
}

// Contains reports whether v lies inside the fence, bounds inclusive.
// Comparisons against NaN are false, so NaN is never contained.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// FilterValues drops the values outside the column's own fence.
func FilterValues(values []float64) []float64 {
	b := IQRBounds(values)
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if b.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// FilterRows keeps the records whose value in every listed column passes
// that column's fence, each fence computed on the full input column.
func FilterRows(t *dataset.Table, columns []string) *dataset.Table {
	fences := make([]Bounds, len(columns))
	for i, c := range columns {
		fences[i] = IQRBounds(t.Column(c))
	}
	return t.Filter(func(r dataset.Record) bool {
		for i, c := range columns {
			v, _ := r.Value(c)
			if !fences[i].Contains(v) {
				return false
			}
		}
		return true
	})
}

func sortedFinite(values []float64) []float64 {
	s := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			s = append(s, v)
		}
	}
	sort.Float64s(s)
	return s
}

// quantile interpolates linearly between order statistics of sorted input
// (the "type 7" estimator).
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
