package forest

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/voltlens/internal/analysis"
	"github.com/KaramelBytes/voltlens/internal/dataset"
)

// Default model columns.
var (
	DefaultPredictors = []string{
		dataset.ColMaxDeltaVolume,
		dataset.ColAverageVoltage,
		dataset.ColGravimetricCapacity,
		dataset.ColStabilityCharge,
	}
	DefaultTarget = dataset.ColGravimetricEnergy
)

// Data is a numeric design matrix with its target.
type Data struct {
	Predictors []string
	Target     string
	IDs        []string
	X          [][]float64
	Y          []float64
}

// Len returns the number of rows.
func (d *Data) Len() int { return len(d.Y) }

// FromTable projects t onto the predictor and target columns, drops rows
// with any missing value, then drops rows failing the IQR fence of any of
// those columns.
func FromTable(t *dataset.Table, predictors []string, target string) *Data {
	cols := append(append([]string(nil), predictors...), target)
	complete := t.Filter(func(r dataset.Record) bool {
		for _, c := range cols {
			if v, _ := r.Value(c); math.IsNaN(v) {
				return false
			}
		}
		return true
	})
	clean := analysis.FilterRows(complete, cols)
	d := &Data{Predictors: append([]string(nil), predictors...), Target: target}
	for _, r := range clean.Records {
		row := make([]float64, len(predictors))
		for j, c := range predictors {
			row[j], _ = r.Value(c)
		}
		y, _ := r.Value(target)
		d.IDs = append(d.IDs, r.ID)
		d.X = append(d.X, row)
		d.Y = append(d.Y, y)
	}
	return d
}

// Split partitions d into train and test sets with a seeded shuffle.
// The test set receives round(n*testFraction) rows.
func (d *Data) Split(testFraction float64, seed int64) (train, test *Data) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(d.Len())
	nTest := int(math.Round(float64(d.Len()) * testFraction))
	test = d.subset(perm[:nTest])
	train = d.subset(perm[nTest:])
	return train, test
}

func (d *Data) subset(idx []int) *Data {
	out := &Data{Predictors: d.Predictors, Target: d.Target}
	out.IDs = make([]string, len(idx))
	out.X = make([][]float64, len(idx))
	out.Y = make([]float64, len(idx))
	for i, k := range idx {
		out.IDs[i] = d.IDs[k]
		out.X[i] = d.X[k]
		out.Y[i] = d.Y[k]
	}
	return out
}

// Column returns predictor j as a slice.
func (d *Data) Column(j int) []float64 {
	out := make([]float64, d.Len())
	for i, row := range d.X {
		out[i] = row[j]
	}
	return out
}

// Means returns the per-predictor means.
func (d *Data) Means() []float64 {
	out := make([]float64, len(d.Predictors))
	for j := range out {
		out[j] = stat.Mean(d.Column(j), nil)
	}
	return out
}

// Ranges returns per-predictor minimum and maximum.
func (d *Data) Ranges() (mins, maxs []float64) {
	mins = make([]float64, len(d.Predictors))
	maxs = make([]float64, len(d.Predictors))
	for j := range mins {
		col := d.Column(j)
		mins[j], maxs[j] = floats.Min(col), floats.Max(col)
	}
	return mins, maxs
}
