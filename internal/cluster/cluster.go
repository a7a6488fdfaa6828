// Package cluster groups battery records by density in a standardized
// capacity/energy space and characterizes the resulting groups.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/voltlens/internal/dataset"
)

// ErrEmpty is returned when no record has complete clustering inputs.
var ErrEmpty = errors.New("no rows to cluster")

// DefaultColumns are the clustering inputs.
var DefaultColumns = []string{
	dataset.ColGravimetricCapacity,
	dataset.ColVolumetricCapacity,
	dataset.ColGravimetricEnergy,
	dataset.ColVolumetricEnergy,
	dataset.ColAtomicFractionDischarge,
}

// Params configures a clustering run.
type Params struct {
	Columns []string
	Eps     float64
	MinPts  int
}

// DefaultParams returns the standard clustering setup.
func DefaultParams() Params {
	return Params{Columns: DefaultColumns, Eps: 0.5, MinPts: 5}
}

// IonCount is one working ion's share of a cluster.
type IonCount struct {
	Ion   string
	Count int
}

// Group describes one non-noise cluster.
type Group struct {
	ID    int
	Size  int
	Ions  []IonCount
	Means map[string]float64
}

// Result holds per-row labels and per-cluster aggregates. Rows with a
// missing clustering input are excluded and do not appear in Rows.
type Result struct {
	Params Params
	Rows   []dataset.Record
	Labels []int
	// Projection is the first two principal components of the scaled inputs.
	Projection [][2]float64
	Groups     []Group
	Noise      int
}

// Run standardizes the clustering columns, labels rows with DBSCAN and
// aggregates the clusters.
func Run(t *dataset.Table, p Params) (*Result, error) {
	if len(p.Columns) == 0 {
		p.Columns = DefaultColumns
	}
	complete := t.Filter(func(r dataset.Record) bool {
		for _, c := range p.Columns {
			if v, _ := r.Value(c); math.IsNaN(v) {
				return false
			}
		}
		return true
	})
	if complete.Len() == 0 {
		return nil, fmt.Errorf("cluster: %w", ErrEmpty)
	}
	raw := complete.Matrix(p.Columns)
	scaled := Standardize(raw)
	labels := DBSCAN(scaled, p.Eps, p.MinPts)

	res := &Result{
		Params:     p,
		Rows:       complete.Records,
		Labels:     labels,
		Projection: project(scaled),
	}
	res.Groups, res.Noise = summarize(complete.Records, raw, labels, p.Columns)
	return res, nil
}

// Standardize scales each column to zero mean and unit sample variance.
// Zero-variance columns are only centered.
func Standardize(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}
	nc := len(rows[0])
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = make([]float64, nc)
	}
	col := make([]float64, len(rows))
	for j := 0; j < nc; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if len(rows) < 2 || std == 0 || math.IsNaN(std) {
			std = 1
		}
		for i, r := range rows {
			out[i][j] = (r[j] - mean) / std
		}
	}
	return out
}

func summarize(rows []dataset.Record, raw [][]float64, labels []int, columns []string) ([]Group, int) {
	members := map[int][]int{}
	noise := 0
	for i, l := range labels {
		if l == Noise {
			noise++
			continue
		}
		members[l] = append(members[l], i)
	}
	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	groups := make([]Group, 0, len(ids))
	for _, id := range ids {
		idx := members[id]
		g := Group{ID: id, Size: len(idx), Means: map[string]float64{}}
		ions := map[string]int{}
		for _, i := range idx {
			ions[rows[i].WorkingIon]++
		}
		for ion, n := range ions {
			g.Ions = append(g.Ions, IonCount{Ion: ion, Count: n})
		}
		sort.Slice(g.Ions, func(a, b int) bool {
			if g.Ions[a].Count == g.Ions[b].Count {
				return g.Ions[a].Ion < g.Ions[b].Ion
			}
			return g.Ions[a].Count > g.Ions[b].Count
		})
		vals := make([]float64, len(idx))
		for j, c := range columns {
			for k, i := range idx {
				vals[k] = raw[i][j]
			}
			g.Means[c] = stat.Mean(vals, nil)
		}
		groups = append(groups, g)
	}
	return groups, noise
}

// project returns the first two principal-component scores of rows.
// Degenerate inputs project to the origin.
func project(rows [][]float64) [][2]float64 {
	out := make([][2]float64, len(rows))
	if len(rows) < 2 || len(rows[0]) == 0 {
		return out
	}
	nr, nc := len(rows), len(rows[0])
	a := mat.NewDense(nr, nc, nil)
	for i, r := range rows {
		a.SetRow(i, r)
	}
	var pc stat.PC
	if !pc.PrincipalComponents(a, nil) {
		return out
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, vc := vecs.Dims()
	k := 2
	if vc < k {
		k = vc
	}
	var scores mat.Dense
	scores.Mul(a, vecs.Slice(0, nc, 0, k))
	for i := range out {
		for j := 0; j < k; j++ {
			out[i][j] = scores.At(i, j)
		}
	}
	return out
}
