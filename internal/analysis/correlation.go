package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/voltlens/internal/dataset"
)

// CorrMatrix holds a symmetric Pearson correlation matrix.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
	// Pairs holds the number of complete observations behind each cell.
	Pairs [][]int
}

// PairCorr is one off-diagonal cell of a correlation matrix.
type PairCorr struct {
	A, B string
	R    float64
}

// Correlations computes Pearson correlations over the given numeric
// columns using pairwise-complete observations. Cells with fewer than two
// complete pairs or zero variance are reported as 0.
func Correlations(t *dataset.Table, columns []string) *CorrMatrix {
	cols := make([][]float64, len(columns))
	for i, c := range columns {
		cols[i] = t.Column(c)
	}
	n := len(columns)
	m := &CorrMatrix{Columns: append([]string(nil), columns...), Values: make([][]float64, n), Pairs: make([][]int, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Pairs[i] = make([]int, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			x, y := completePairs(cols[a], cols[b])
			m.Pairs[a][b], m.Pairs[b][a] = len(x), len(x)
			if a == b {
				m.Values[a][b] = 1
				continue
			}
			var r float64
			if len(x) >= 2 {
				r = stat.Correlation(x, y, nil)
			}
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
			}
			r = math.Max(-1, math.Min(1, r))
			m.Values[a][b], m.Values[b][a] = r, r
		}
	}
	return m
}

// Top returns the k strongest off-diagonal pairs by |r|.
func (m *CorrMatrix) Top(k int) []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if k > 0 && len(pairs) > k {
		pairs = pairs[:k]
	}
	return pairs
}

func completePairs(x, y []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}
