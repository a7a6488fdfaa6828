package forest

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// FormatVersion is bumped whenever the serialized model layout changes.
const FormatVersion = 1

// CVResult is the cross-validated error of one mtry candidate.
type CVResult struct {
	Mtry int     `json:"mtry"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// Model is a trained forest bound to named predictors and a target.
type Model struct {
	ID          string     `json:"id"`
	Version     int        `json:"version"`
	Fingerprint string     `json:"fingerprint"`
	TrainedAt   time.Time  `json:"trained_at"`
	Predictors  []string   `json:"predictors"`
	Target      string     `json:"target"`
	Params      Params     `json:"params"`
	TrainRows   int        `json:"train_rows"`
	CV          []CVResult `json:"cv"`
	Forest      *Forest    `json:"forest"`
}

// Predict scores each row. Rows must carry one value per predictor; the
// values themselves are not range-checked.
func (m *Model) Predict(rows [][]float64) ([]float64, error) {
	if m == nil || m.Forest == nil || len(m.Forest.Trees) == 0 {
		return nil, fmt.Errorf("predict: %w", ErrEmpty)
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(m.Predictors) {
			return nil, fmt.Errorf("predict row %d: %w: got %d values, want %d", i, ErrArity, len(row), len(m.Predictors))
		}
		out[i] = m.Forest.Predict(row)
	}
	return out, nil
}

// Best returns the selected CV candidate.
func (m *Model) Best() CVResult {
	for _, c := range m.CV {
		if c.Mtry == m.Forest.Mtry {
			return c
		}
	}
	return CVResult{Mtry: m.Forest.Mtry, RMSE: math.NaN(), MAE: math.NaN(), R2: math.NaN()}
}

// Train tunes mtry by k-fold cross-validation on d and refits the winning
// configuration on all of d.
func Train(d *Data, p Params) (*Model, error) {
	if d.Len() == 0 {
		return nil, fmt.Errorf("train: %w", ErrEmpty)
	}
	grid := p.Mtry
	if len(grid) == 0 {
		grid = []int{int(math.Max(1, math.Floor(float64(len(d.Predictors))/3)))}
	}
	cv, err := CrossValidate(d, p, grid)
	if err != nil {
		return nil, err
	}
	best := cv[0]
	for _, c := range cv[1:] {
		if c.RMSE < best.RMSE {
			best = c
		}
	}
	f, err := Fit(d.X, d.Y, best.Mtry, p, p.Seed)
	if err != nil {
		return nil, fmt.Errorf("train final forest: %w", err)
	}
	return &Model{
		ID:          uuid.NewString(),
		Version:     FormatVersion,
		Fingerprint: Fingerprint(d, p),
		TrainedAt:   time.Now().UTC(),
		Predictors:  append([]string(nil), d.Predictors...),
		Target:      d.Target,
		Params:      p,
		TrainRows:   d.Len(),
		CV:          cv,
		Forest:      f,
	}, nil
}

// CrossValidate scores every mtry in grid with k-fold cross-validation.
// Fold membership comes from a shuffle seeded by p.Seed and is shared by
// all candidates. Metrics are averaged over folds.
func CrossValidate(d *Data, p Params, grid []int) ([]CVResult, error) {
	k := p.Folds
	if k < 2 {
		k = 2
	}
	if k > d.Len() {
		k = d.Len()
	}
	if k < 2 {
		return nil, fmt.Errorf("cross-validate: %w: need at least 2 rows", ErrEmpty)
	}
	rng := rand.New(rand.NewSource(p.Seed))
	fold := make([]int, d.Len())
	for pos, i := range rng.Perm(d.Len()) {
		fold[i] = pos % k
	}

	seen := map[int]bool{}
	var out []CVResult
	for _, mtry := range grid {
		mtry = clampMtry(mtry, len(d.Predictors))
		if seen[mtry] {
			continue
		}
		seen[mtry] = true
		res := CVResult{Mtry: mtry}
		r2Sum, r2N := 0.0, 0
		for f := 0; f < k; f++ {
			var trX, teX [][]float64
			var trY, teY []float64
			for i := range d.Y {
				if fold[i] == f {
					teX, teY = append(teX, d.X[i]), append(teY, d.Y[i])
				} else {
					trX, trY = append(trX, d.X[i]), append(trY, d.Y[i])
				}
			}
			model, err := Fit(trX, trY, mtry, p, p.Seed+int64(f)+1)
			if err != nil {
				return nil, fmt.Errorf("cross-validate fold %d: %w", f+1, err)
			}
			pred := make([]float64, len(teX))
			for i, x := range teX {
				pred[i] = model.Predict(x)
			}
			m := Score(teY, pred)
			res.RMSE += m.RMSE / float64(k)
			res.MAE += m.MAE / float64(k)
			if !math.IsNaN(m.R2) {
				r2Sum += m.R2
				r2N++
			}
		}
		if r2N > 0 {
			res.R2 = r2Sum / float64(r2N)
		}
		out = append(out, res)
	}
	return out, nil
}

func clampMtry(mtry, p int) int {
	if mtry < 1 {
		return 1
	}
	if mtry > p {
		return p
	}
	return mtry
}
