package forest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/voltlens/internal/dataset"
)

// Metrics summarizes prediction error.
type Metrics struct {
	N    int
	RMSE float64
	MAE  float64
	R2   float64
}

// Score compares predictions against actual values. R2 is the
// coefficient of determination and is NaN when actual has no variance.
func Score(actual, pred []float64) Metrics {
	m := Metrics{N: len(actual)}
	if m.N == 0 {
		m.RMSE, m.MAE, m.R2 = math.NaN(), math.NaN(), math.NaN()
		return m
	}
	sse, sae := 0.0, 0.0
	for i := range actual {
		e := pred[i] - actual[i]
		sse += e * e
		sae += math.Abs(e)
	}
	m.RMSE = math.Sqrt(sse / float64(m.N))
	m.MAE = sae / float64(m.N)
	mean := stat.Mean(actual, nil)
	sst := 0.0
	for _, v := range actual {
		sst += (v - mean) * (v - mean)
	}
	if sst == 0 {
		m.R2 = math.NaN()
	} else {
		m.R2 = 1 - sse/sst
	}
	return m
}

// Evaluate scores the model on a held-out split.
func Evaluate(m *Model, test *Data) (Metrics, error) {
	pred, err := m.Predict(test.X)
	if err != nil {
		return Metrics{}, err
	}
	return Score(test.Y, pred), nil
}

// Comparison pairs a real record's target with the model's prediction.
type Comparison struct {
	ID        string
	Ion       string
	Actual    float64
	Predicted float64
}

// CompareSample scores n randomly chosen records of t that have complete
// predictor and target values.
func CompareSample(m *Model, t *dataset.Table, n int, seed int64) ([]Comparison, error) {
	complete := t.Filter(func(r dataset.Record) bool {
		for _, c := range append(append([]string(nil), m.Predictors...), m.Target) {
			if v, _ := r.Value(c); math.IsNaN(v) {
				return false
			}
		}
		return true
	})
	sample := complete.Sample(n, seed)
	rows := sample.Matrix(m.Predictors)
	pred, err := m.Predict(rows)
	if err != nil {
		return nil, err
	}
	out := make([]Comparison, sample.Len())
	for i, r := range sample.Records {
		actual, _ := r.Value(m.Target)
		out[i] = Comparison{ID: r.ID, Ion: r.WorkingIon, Actual: actual, Predicted: pred[i]}
	}
	return out, nil
}

// Curve is the model response along one predictor ramp.
type Curve struct {
	Predictor string
	X         []float64
	Y         []float64
}

// Ramps scores a monotonic ramp from min to max of each predictor in the
// training data, holding the other predictors at their training means.
func Ramps(m *Model, train *Data, steps int) ([]Curve, error) {
	if train.Len() == 0 {
		return nil, fmt.Errorf("ramps: %w", ErrEmpty)
	}
	if steps < 2 {
		steps = 2
	}
	means := train.Means()
	mins, maxs := train.Ranges()
	out := make([]Curve, 0, len(m.Predictors))
	for j, name := range m.Predictors {
		c := Curve{Predictor: name, X: make([]float64, steps)}
		rows := make([][]float64, steps)
		for s := 0; s < steps; s++ {
			v := mins[j] + (maxs[j]-mins[j])*float64(s)/float64(steps-1)
			row := append([]float64(nil), means...)
			row[j] = v
			c.X[s] = v
			rows[s] = row
		}
		y, err := m.Predict(rows)
		if err != nil {
			return nil, err
		}
		c.Y = y
		out = append(out, c)
	}
	return out, nil
}
