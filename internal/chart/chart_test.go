package chart

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/KaramelBytes/voltlens/internal/cluster"
	"github.com/KaramelBytes/voltlens/internal/dataset"
	"github.com/KaramelBytes/voltlens/internal/forest"
)

func TestIonCountsHoverNamesElement(t *testing.T) {
	tbl := dataset.Synthetic(120, 2)
	c := IonCounts(tbl)
	if diff := cmp.Diff(tbl.Ions(), c.Categories); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}
	total := 0.0
	for _, v := range c.Series[0].Y {
		total += v
	}
	if int(total) != tbl.Len() {
		t.Fatalf("bar total %v, records %d", total, tbl.Len())
	}
	for i, ion := range c.Categories {
		if ion == "Li" && !strings.Contains(c.Series[0].Hover[i], "Lithium") {
			t.Fatalf("hover %q should name the element", c.Series[0].Hover[i])
		}
	}
}

func TestGroupedMeansLeavesMissingGroupsEmpty(t *testing.T) {
	tbl := dataset.Synthetic(80, 4)
	for i := range tbl.Records {
		if tbl.Records[i].WorkingIon == "Na" {
			tbl.Records[i].StabilityDischarge = math.NaN()
		}
	}
	c := GroupedMeans(tbl, "Stability by Working Ion", dataset.ColStabilityCharge, dataset.ColStabilityDischarge)
	if c.ID != "stability-by-working-ion" {
		t.Fatalf("id = %q", c.ID)
	}
	if len(c.Series) != 2 {
		t.Fatalf("series = %d", len(c.Series))
	}
	for i, ion := range c.Categories {
		charge, discharge := c.Series[0].Y[i], c.Series[1].Y[i]
		if math.IsNaN(charge) {
			t.Fatalf("%s charge mean missing", ion)
		}
		if ion == "Na" && !math.IsNaN(discharge) {
			t.Fatalf("Na discharge mean should be missing, got %v", discharge)
		}
		if ion == "Na" && c.Series[1].Hover[i] != "" {
			t.Fatalf("missing bar has hover %q", c.Series[1].Hover[i])
		}
	}
	if _, err := json.Marshal(c.Figure()); err != nil {
		t.Fatalf("figure with missing bars must marshal: %v", err)
	}
}

func TestVoltageRangeOrdering(t *testing.T) {
	c := VoltageRange(dataset.Synthetic(150, 8))
	for i, ion := range c.Categories {
		lo, mid, hi := c.Series[0].Y[i], c.Series[1].Y[i], c.Series[2].Y[i]
		if !(lo <= mid && mid <= hi) {
			t.Fatalf("%s: min %v mean %v max %v", ion, lo, mid, hi)
		}
	}
}

func TestCorrelationFigureSplitsTriangles(t *testing.T) {
	c := CorrelationMatrix(dataset.Synthetic(60, 1))
	n := len(dataset.NumericColumns())
	f := c.Figure()
	if len(f.Data) != 1 || len(f.Data[0].Z) != n {
		t.Fatalf("unexpected heatmap shape")
	}
	z := f.Data[0].Z
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j < i && z[i][j] != nil {
				t.Fatalf("lower cell (%d,%d) should be blank", i, j)
			}
			if j >= i && z[i][j] == nil {
				t.Fatalf("upper cell (%d,%d) should be coloured", i, j)
			}
		}
	}
	if want := n * (n - 1) / 2; len(f.Layout.Annotations) != want {
		t.Fatalf("annotations = %d, want %d", len(f.Layout.Annotations), want)
	}
}

func TestClusterProjectionSeries(t *testing.T) {
	res := &cluster.Result{
		Rows: []dataset.Record{
			{ID: "a", WorkingIon: "Li"}, {ID: "b", WorkingIon: "Na"}, {ID: "c", WorkingIon: "Mg"},
		},
		Labels:     []int{1, cluster.Noise, 1},
		Projection: [][2]float64{{0, 1}, {2, 3}, {4, 5}},
	}
	c := ClusterProjection(res)
	if len(c.Series) != 2 || c.Series[0].Name != "Noise" || c.Series[1].Name != "Cluster 1" {
		t.Fatalf("series = %+v", c.Series)
	}
	if diff := cmp.Diff([]float64{0, 4}, c.Series[1].X); diff != "" {
		t.Fatalf("cluster x mismatch:\n%s", diff)
	}
	if !strings.Contains(c.Series[0].Hover[0], "Sodium") {
		t.Fatalf("hover %q", c.Series[0].Hover[0])
	}
}

func TestSensitivityAndComparisonCharts(t *testing.T) {
	curves := []forest.Curve{{Predictor: dataset.ColAverageVoltage, X: []float64{1, 2, 3}, Y: []float64{10, 20, 30}}}
	lines := Sensitivity(curves, dataset.ColGravimetricEnergy)
	if len(lines) != 1 || lines[0].Kind != KindLine || lines[0].ID != "sensitivity-average-voltage" {
		t.Fatalf("sensitivity charts = %+v", lines)
	}
	bars := PredictedVsActual([]forest.Comparison{{ID: "mp-1", Ion: "Zn", Actual: 100, Predicted: 90}}, dataset.ColGravimetricEnergy)
	if len(bars.Series) != 2 || !strings.Contains(bars.Series[1].Hover[0], "Zinc") {
		t.Fatalf("comparison chart = %+v", bars)
	}
}

func TestRenderWritesImages(t *testing.T) {
	dir := t.TempDir()
	tbl := dataset.Synthetic(100, 6)
	charts := []*Chart{
		Distributions(tbl)[0],
		IonCounts(tbl),
		GroupedMeans(tbl, "Capacity", dataset.ColGravimetricCapacity, dataset.ColVolumetricCapacity),
		CorrelationMatrix(tbl),
		Sensitivity([]forest.Curve{{Predictor: "x", X: []float64{0, 1}, Y: []float64{1, 2}}}, "y")[0],
	}
	for _, c := range charts {
		path := filepath.Join(dir, "charts", c.ID+".png")
		if err := Render(c, path); err != nil {
			t.Fatalf("Render %s: %v", c.ID, err)
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Fatalf("%s not written: %v", path, err)
		}
	}
	if err := Render(&Chart{ID: "bad", Kind: "pie"}, filepath.Join(dir, "bad.png")); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestSlug(t *testing.T) {
	for in, want := range map[string]string{
		"Distribution of Max Delta Volume": "distribution-of-max-delta-volume",
		"  Capacity (mAh/g) ":              "capacity-mah-g",
	} {
		if got := slug(in); got != want {
			t.Fatalf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
