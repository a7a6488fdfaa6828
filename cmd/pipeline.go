package cmd

import (
	"fmt"
	"log/slog"

	cfgpkg "github.com/KaramelBytes/voltlens/internal/config"
	"github.com/KaramelBytes/voltlens/internal/cluster"
	"github.com/KaramelBytes/voltlens/internal/dataset"
	"github.com/KaramelBytes/voltlens/internal/forest"
	"github.com/KaramelBytes/voltlens/internal/utils"
)

// loadTable reads the data file named by args[0], or the configured one.
func loadTable(c *cfgpkg.Global, args []string) (*dataset.Table, error) {
	path := c.DataPath
	if len(args) > 0 && args[0] != "" {
		path = args[0]
	}
	if path == "" {
		return nil, fmt.Errorf("no data file: pass one or set data_path")
	}
	if !utils.FileExists(path) {
		return nil, fmt.Errorf("data file not found: %s", path)
	}
	t, err := dataset.Load(path, dataset.Options{Sheet: c.Sheet})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

func forestParams(c *cfgpkg.Global) forest.Params {
	p := forest.DefaultParams()
	p.Seed = c.Seed
	if c.Model.Trees > 0 {
		p.Trees = c.Model.Trees
	}
	if len(c.Model.Mtry) > 0 {
		p.Mtry = append([]int(nil), c.Model.Mtry...)
	}
	if c.Model.MinLeaf > 0 {
		p.MinLeaf = c.Model.MinLeaf
	}
	if c.Model.CVFolds > 0 {
		p.Folds = c.Model.CVFolds
	}
	p.MaxDepth = c.Model.MaxDepth
	p.Workers = c.Model.Workers
	return p
}

func clusterParams(c *cfgpkg.Global) cluster.Params {
	p := cluster.DefaultParams()
	if c.Cluster.Eps > 0 {
		p.Eps = c.Cluster.Eps
	}
	if c.Cluster.MinPts > 0 {
		p.MinPts = c.Cluster.MinPts
	}
	return p
}

// fitted is a model with the split it was tuned on.
type fitted struct {
	model  *forest.Model
	cached bool
	train  *forest.Data
	test   *forest.Data
}

// holdout scores the model on the test split, or returns nil when the
// split is empty.
func (f *fitted) holdout() (*forest.Metrics, error) {
	if f.test.Len() == 0 {
		return nil, nil
	}
	m, err := forest.Evaluate(f.model, f.test)
	if err != nil {
		return nil, fmt.Errorf("evaluate held-out split: %w", err)
	}
	return &m, nil
}

// fitModel prepares the model data, splits it and loads the cached model
// or trains a new one.
func fitModel(c *cfgpkg.Global, t *dataset.Table, force bool, log *slog.Logger) (*fitted, error) {
	d := forest.FromTable(t, forest.DefaultPredictors, forest.DefaultTarget)
	if d.Len() == 0 {
		return nil, fmt.Errorf("prepare model data: %w", forest.ErrEmpty)
	}
	frac := c.Model.TestFraction
	if frac < 0 || frac >= 1 {
		return nil, fmt.Errorf("invalid model.test_fraction %v: must be in [0, 1)", frac)
	}
	train, test := d.Split(frac, c.Seed)
	p := forestParams(c)
	log.Debug("prepared model data", "rows", d.Len(), "dropped", t.Len()-d.Len(), "train", train.Len(), "test", test.Len())

	opt := forest.CacheOptions{Path: c.Model.Path, Verify: c.Model.VerifyCache, Force: force}
	m, cached, err := forest.LoadOrTrain(opt, forest.Fingerprint(train, p), func() (*forest.Model, error) {
		log.Info("training forest", "rows", train.Len(), "trees", p.Trees, "folds", p.Folds, "mtry", p.Mtry)
		return forest.Train(train, p)
	}, log)
	if err != nil {
		return nil, err
	}
	return &fitted{model: m, cached: cached, train: train, test: test}, nil
}
