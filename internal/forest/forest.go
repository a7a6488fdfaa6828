package forest

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmpty is returned when there are no rows to fit.
	ErrEmpty = errors.New("no training rows")
	// ErrArity is returned when a row does not have one value per predictor.
	ErrArity = errors.New("predictor count mismatch")
)

// Params are the forest hyper-parameters and the tuning setup.
type Params struct {
	Trees    int   `json:"trees"`
	Mtry     []int `json:"mtry"`
	MinLeaf  int   `json:"min_leaf"`
	MaxDepth int   `json:"max_depth"`
	Folds    int   `json:"folds"`
	Seed     int64 `json:"seed"`
	// Workers bounds parallel tree growth; results do not depend on it.
	Workers int `json:"-"`
}

// DefaultParams mirrors the classic randomForest regression defaults
// with a caret-style mtry grid.
func DefaultParams() Params {
	return Params{
		Trees:   200,
		Mtry:    []int{2, 3, 4},
		MinLeaf: 5,
		Folds:   10,
		Seed:    42,
	}
}

// Forest is a bagged ensemble of regression trees.
type Forest struct {
	Mtry  int    `json:"mtry"`
	Trees []Tree `json:"trees"`
}

// Predict returns the ensemble mean for one row.
func (f *Forest) Predict(x []float64) float64 {
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return sum / float64(len(f.Trees))
}

// Fit grows p.Trees trees with the given mtry on bootstrap samples of
// (x, y). Each tree draws from its own source seeded from seed, so the
// forest is reproducible regardless of p.Workers.
func Fit(x [][]float64, y []float64, mtry int, p Params, seed int64) (*Forest, error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, ErrEmpty
	}
	nf := len(x[0])
	if nf == 0 {
		return nil, fmt.Errorf("fit forest: %w: no predictors", ErrArity)
	}
	if mtry < 1 {
		mtry = 1
	}
	if mtry > nf {
		mtry = nf
	}
	trees := p.Trees
	if trees <= 0 {
		trees = DefaultParams().Trees
	}
	minLeaf := p.MinLeaf
	if minLeaf <= 0 {
		minLeaf = 1
	}

	master := rand.New(rand.NewSource(seed))
	seeds := make([]int64, trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	f := &Forest{Mtry: mtry, Trees: make([]Tree, trees)}
	var g errgroup.Group
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g.SetLimit(workers)
	for i := range seeds {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[i]))
			idx := make([]int, n)
			for k := range idx {
				idx[k] = rng.Intn(n)
			}
			f.Trees[i] = growTree(x, y, idx, mtry, minLeaf, p.MaxDepth, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}
	return f, nil
}
