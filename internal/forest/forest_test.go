package forest

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/voltlens/internal/dataset"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallParams() Params {
	p := DefaultParams()
	p.Trees = 15
	p.Folds = 3
	p.Mtry = []int{2, 4}
	p.Seed = 7
	p.Workers = 4
	return p
}

func trainSplit(t *testing.T) (train, test *Data) {
	t.Helper()
	tbl := dataset.Synthetic(240, 21)
	d := FromTable(tbl, DefaultPredictors, DefaultTarget)
	if d.Len() == 0 {
		t.Fatalf("no rows after filtering")
	}
	return d.Split(0.2, 42)
}

func TestFromTableDropsMissingAndOutliers(t *testing.T) {
	tbl := dataset.Synthetic(100, 3)
	tbl.Records[0].AverageVoltage = math.NaN()
	tbl.Records[1].GravimetricCapacity = 1e9
	d := FromTable(tbl, DefaultPredictors, DefaultTarget)
	for _, id := range d.IDs {
		if id == tbl.Records[0].ID || id == tbl.Records[1].ID {
			t.Fatalf("row %s should have been dropped", id)
		}
	}
	if d.Len() >= tbl.Len()-1 {
		t.Fatalf("expected rows dropped, got %d of %d", d.Len(), tbl.Len())
	}
}

func TestSplitIsSeededAndComplete(t *testing.T) {
	d := FromTable(dataset.Synthetic(100, 3), DefaultPredictors, DefaultTarget)
	tr1, te1 := d.Split(0.2, 9)
	tr2, te2 := d.Split(0.2, 9)
	if tr1.Len()+te1.Len() != d.Len() {
		t.Fatalf("split loses rows: %d+%d != %d", tr1.Len(), te1.Len(), d.Len())
	}
	if want := int(math.Round(float64(d.Len()) * 0.2)); te1.Len() != want {
		t.Fatalf("test rows = %d, want %d", te1.Len(), want)
	}
	for i := range te1.IDs {
		if te1.IDs[i] != te2.IDs[i] {
			t.Fatalf("split not reproducible")
		}
	}
	_ = tr2
}

func TestTrainLearnsAndPredictsDeterministically(t *testing.T) {
	train, test := trainSplit(t)
	m, err := Train(train, smallParams())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(m.CV) != 2 {
		t.Fatalf("cv results = %d, want 2", len(m.CV))
	}
	if m.Forest.Mtry != 2 && m.Forest.Mtry != 4 {
		t.Fatalf("selected mtry %d not in grid", m.Forest.Mtry)
	}
	for _, c := range m.CV {
		if c.RMSE < m.Best().RMSE {
			t.Fatalf("mtry %d has lower RMSE than the selected one", c.Mtry)
		}
	}
	metrics, err := Evaluate(m, test)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if metrics.R2 < 0.5 {
		t.Fatalf("held-out R2 = %.3f, expected the forest to learn voltage*capacity", metrics.R2)
	}

	row := [][]float64{test.X[0], test.X[0]}
	p, err := m.Predict(row)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p[0] != p[1] {
		t.Fatalf("same input gave %v and %v", p[0], p[1])
	}
}

func TestPredictOutOfDistributionRows(t *testing.T) {
	train, _ := trainSplit(t)
	m, err := Train(train, smallParams())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	rows := [][]float64{
		{0.2, 3.5, 150, 0.1},
		{0.8, 1.0, 50, 2.0},
	}
	pred, err := m.Predict(rows)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(pred) != 2 {
		t.Fatalf("got %d predictions", len(pred))
	}
	for _, v := range pred {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite prediction %v", v)
		}
	}
	if _, err := m.Predict([][]float64{{-5, -1, 0, 99}}); err != nil {
		t.Fatalf("physically implausible input must still be scored: %v", err)
	}
	if _, err := m.Predict([][]float64{{1, 2}}); !errors.Is(err, ErrArity) {
		t.Fatalf("expected ErrArity, got %v", err)
	}
}

func TestRetrainReproducesCachedModel(t *testing.T) {
	train, test := trainSplit(t)
	p := smallParams()
	path := filepath.Join(t.TempDir(), "models", "forest.json")
	fp := Fingerprint(train, p)
	trainFn := func() (*Model, error) { return Train(train, p) }

	first, cached, err := LoadOrTrain(CacheOptions{Path: path, Verify: true}, fp, trainFn, quietLogger())
	if err != nil || cached {
		t.Fatalf("first LoadOrTrain: cached=%v err=%v", cached, err)
	}
	again, cached, err := LoadOrTrain(CacheOptions{Path: path, Verify: true}, fp, trainFn, quietLogger())
	if err != nil || !cached {
		t.Fatalf("second LoadOrTrain should hit cache: cached=%v err=%v", cached, err)
	}
	if again.ID != first.ID {
		t.Fatalf("cache returned a different model")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove cache: %v", err)
	}
	retrained, cached, err := LoadOrTrain(CacheOptions{Path: path, Verify: true}, fp, trainFn, quietLogger())
	if err != nil || cached {
		t.Fatalf("retrain: cached=%v err=%v", cached, err)
	}
	a, _ := again.Predict(test.X[:1])
	b, _ := retrained.Predict(test.X[:1])
	if math.Abs(a[0]-b[0]) > 1e-9 {
		t.Fatalf("retrained prediction %v differs from cached %v", b[0], a[0])
	}
}

func TestWorkerCountDoesNotChangeForest(t *testing.T) {
	train, test := trainSplit(t)
	p := smallParams()
	p.Workers = 1
	serial, err := Fit(train.X, train.Y, 2, p, 11)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	p.Workers = 8
	parallel, err := Fit(train.X, train.Y, 2, p, 11)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for _, x := range test.X {
		if serial.Predict(x) != parallel.Predict(x) {
			t.Fatalf("worker count changed predictions")
		}
	}
}

func TestStaleCacheDetection(t *testing.T) {
	train, _ := trainSplit(t)
	p := smallParams()
	path := filepath.Join(t.TempDir(), "forest.json")
	m, err := Train(train, p)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	calls := 0
	trainFn := func() (*Model, error) { calls++; return Train(train, p) }

	// Unverified reuse keeps the stale artifact.
	got, cached, err := LoadOrTrain(CacheOptions{Path: path}, "different", trainFn, quietLogger())
	if err != nil || !cached || got.ID != m.ID || calls != 0 {
		t.Fatalf("unverified load: cached=%v calls=%d err=%v", cached, calls, err)
	}
	// Verified load notices the fingerprint change and retrains.
	got, cached, err = LoadOrTrain(CacheOptions{Path: path, Verify: true}, "different", trainFn, quietLogger())
	if err != nil || cached || calls != 1 || got.ID == m.ID {
		t.Fatalf("verified load: cached=%v calls=%d err=%v", cached, calls, err)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forest.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
	_, _, err := LoadOrTrain(CacheOptions{Path: path}, "", func() (*Model, error) {
		t.Fatalf("corrupt cache must not silently retrain")
		return nil, nil
	}, quietLogger())
	if err == nil {
		t.Fatalf("expected error for corrupt cache")
	}
}

func TestRampsAndSample(t *testing.T) {
	train, _ := trainSplit(t)
	m, err := Train(train, smallParams())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	curves, err := Ramps(m, train, 25)
	if err != nil {
		t.Fatalf("Ramps: %v", err)
	}
	if len(curves) != len(DefaultPredictors) {
		t.Fatalf("curves = %d", len(curves))
	}
	for _, c := range curves {
		if len(c.X) != 25 || len(c.Y) != 25 {
			t.Fatalf("%s: ramp length %d/%d", c.Predictor, len(c.X), len(c.Y))
		}
		for i := 1; i < len(c.X); i++ {
			if c.X[i] < c.X[i-1] {
				t.Fatalf("%s: ramp not monotonic", c.Predictor)
			}
		}
	}

	tbl := dataset.Synthetic(80, 5)
	cmp1, err := CompareSample(m, tbl, 10, 3)
	if err != nil {
		t.Fatalf("CompareSample: %v", err)
	}
	cmp2, _ := CompareSample(m, tbl, 10, 3)
	if len(cmp1) != 10 {
		t.Fatalf("sample size = %d", len(cmp1))
	}
	for i := range cmp1 {
		if cmp1[i] != cmp2[i] {
			t.Fatalf("seeded comparison not reproducible")
		}
	}
}

func TestScore(t *testing.T) {
	m := Score([]float64{1, 2, 3}, []float64{1, 2, 3})
	if m.RMSE != 0 || m.MAE != 0 || m.R2 != 1 {
		t.Fatalf("perfect score = %+v", m)
	}
	if m := Score([]float64{2, 2}, []float64{1, 3}); !math.IsNaN(m.R2) || m.RMSE != 1 {
		t.Fatalf("constant actual score = %+v", m)
	}
}
