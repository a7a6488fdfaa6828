// Package chart builds report figures from the battery table, the fitted
// model and the clustering result. A Chart is plain data: Render draws it
// with gonum/plot and Figure converts it to interactive traces.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/voltlens/internal/analysis"
	"github.com/KaramelBytes/voltlens/internal/cluster"
	"github.com/KaramelBytes/voltlens/internal/dataset"
	"github.com/KaramelBytes/voltlens/internal/elements"
	"github.com/KaramelBytes/voltlens/internal/forest"
)

// Kind selects how a chart is drawn.
type Kind string

const (
	KindHistogram Kind = "histogram"
	KindBar       Kind = "bar"
	KindLine      Kind = "line"
	KindScatter   Kind = "scatter"
	KindHeatmap   Kind = "heatmap"
)

// Series is one trace. Bar series align Y with Chart.Categories and use
// NaN for missing bars; the other kinds pair X with Y. Histograms only
// carry X.
type Series struct {
	Name  string
	X     []float64
	Y     []float64
	Hover []string
}

// Chart is a renderer-independent figure.
type Chart struct {
	ID         string
	Title      string
	Kind       Kind
	XLabel     string
	YLabel     string
	Categories []string
	Series     []Series

	// Heatmap cells, row-major over Labels.
	Matrix [][]float64
	Labels []string
	// CellHover matches Matrix.
	CellHover [][]string
}

// Distributions returns one histogram per numeric column.
func Distributions(t *dataset.Table) []*Chart {
	cols := dataset.NumericColumns()
	out := make([]*Chart, 0, len(cols))
	for _, c := range cols {
		vals := finite(t.Column(c))
		out = append(out, &Chart{
			ID:     "hist-" + slug(c),
			Title:  "Distribution of " + c,
			Kind:   KindHistogram,
			XLabel: c,
			YLabel: "Records",
			Series: []Series{{Name: c, X: vals}},
		})
	}
	return out
}

// IonCounts charts the number of records per working ion.
func IonCounts(t *dataset.Table) *Chart {
	groups := t.GroupByIon()
	c := &Chart{
		ID:     "ion-counts",
		Title:  "Records per Working Ion",
		Kind:   KindBar,
		XLabel: dataset.ColWorkingIon,
		YLabel: "Records",
	}
	s := Series{Name: "Records"}
	for _, ion := range t.Ions() {
		n := groups[ion].Len()
		c.Categories = append(c.Categories, ion)
		s.Y = append(s.Y, float64(n))
		s.Hover = append(s.Hover, fmt.Sprintf("%s: %d records", elements.Name(ion), n))
	}
	c.Series = []Series{s}
	return c
}

// GroupedMeans groups t by working ion, IQR-filters each column within its
// group and charts the means as grouped bars, one series per column.
func GroupedMeans(t *dataset.Table, title string, columns ...string) *Chart {
	groups := analysis.GroupByIon(t, columns, true)
	c := &Chart{
		ID:     slug(title),
		Title:  title,
		Kind:   KindBar,
		XLabel: dataset.ColWorkingIon,
		YLabel: "Mean",
	}
	pos := map[string]int{}
	for i, g := range groups {
		c.Categories = append(c.Categories, g.Ion)
		pos[g.Ion] = i
	}
	series := make(map[string]*Series, len(columns))
	for _, col := range columns {
		s := &Series{Name: col, Y: nanSlice(len(groups)), Hover: make([]string, len(groups))}
		series[col] = s
	}
	for _, r := range analysis.Long(groups, columns) {
		s, i := series[r.Measure], pos[r.Ion]
		s.Y[i] = r.Value
		s.Hover[i] = fmt.Sprintf("%s<br>%s: %.2f", elements.Name(r.Ion), r.Measure, r.Value)
	}
	for _, col := range columns {
		c.Series = append(c.Series, *series[col])
	}
	return c
}

// VoltageRange charts the min, mean and max of IQR-filtered average
// voltage per working ion.
func VoltageRange(t *dataset.Table) *Chart {
	col := dataset.ColAverageVoltage
	groups := analysis.GroupByIon(t, []string{col}, true)
	c := &Chart{
		ID:     "voltage-range",
		Title:  "Average Voltage Range by Working Ion",
		Kind:   KindBar,
		XLabel: dataset.ColWorkingIon,
		YLabel: col + " (V)",
	}
	stats := []struct {
		name string
		get  func(analysis.NumSummary) float64
	}{
		{"Min", func(s analysis.NumSummary) float64 { return s.Min }},
		{"Mean", func(s analysis.NumSummary) float64 { return s.Mean }},
		{"Max", func(s analysis.NumSummary) float64 { return s.Max }},
	}
	for _, g := range groups {
		c.Categories = append(c.Categories, g.Ion)
	}
	for _, st := range stats {
		s := Series{Name: st.name, Y: nanSlice(len(groups)), Hover: make([]string, len(groups))}
		for i, g := range groups {
			m, ok := g.Metrics[col]
			if !ok {
				continue
			}
			v := st.get(m)
			s.Y[i] = v
			s.Hover[i] = fmt.Sprintf("%s<br>%s voltage: %.2f V<br>range %.2f to %.2f V", elements.Name(g.Ion), strings.ToLower(st.name), v, m.Min, m.Max)
		}
		c.Series = append(c.Series, s)
	}
	return c
}

// CorrelationMatrix charts pairwise-complete Pearson correlations between
// all numeric columns.
func CorrelationMatrix(t *dataset.Table) *Chart {
	m := analysis.Correlations(t, dataset.NumericColumns())
	c := &Chart{
		ID:     "correlation-matrix",
		Title:  "Correlation Matrix",
		Kind:   KindHeatmap,
		Matrix: m.Values,
		Labels: m.Columns,
	}
	c.CellHover = make([][]string, len(m.Columns))
	for i, a := range m.Columns {
		c.CellHover[i] = make([]string, len(m.Columns))
		for j, b := range m.Columns {
			c.CellHover[i][j] = fmt.Sprintf("%s vs %s<br>r = %.2f (n = %d)", a, b, m.Values[i][j], m.Pairs[i][j])
		}
	}
	return c
}

// Sensitivity returns one line chart per predictor ramp.
func Sensitivity(curves []forest.Curve, target string) []*Chart {
	out := make([]*Chart, 0, len(curves))
	for _, cv := range curves {
		s := Series{Name: "Predicted " + target, X: cv.X, Y: cv.Y, Hover: make([]string, len(cv.X))}
		for i := range cv.X {
			s.Hover[i] = fmt.Sprintf("%s = %.3g<br>predicted %s = %.1f", cv.Predictor, cv.X[i], target, cv.Y[i])
		}
		out = append(out, &Chart{
			ID:     "sensitivity-" + slug(cv.Predictor),
			Title:  "Predicted " + target + " vs " + cv.Predictor,
			Kind:   KindLine,
			XLabel: cv.Predictor,
			YLabel: target,
			Series: []Series{s},
		})
	}
	return out
}

// PredictedVsActual charts a model sample as grouped bars per record.
func PredictedVsActual(rows []forest.Comparison, target string) *Chart {
	c := &Chart{
		ID:     "predicted-vs-actual",
		Title:  "Predicted vs Actual " + target,
		Kind:   KindBar,
		XLabel: dataset.ColID,
		YLabel: target,
	}
	actual := Series{Name: "Actual", Y: make([]float64, len(rows)), Hover: make([]string, len(rows))}
	pred := Series{Name: "Predicted", Y: make([]float64, len(rows)), Hover: make([]string, len(rows))}
	for i, r := range rows {
		c.Categories = append(c.Categories, r.ID)
		who := fmt.Sprintf("%s (%s)", r.ID, elements.Name(r.Ion))
		actual.Y[i] = r.Actual
		actual.Hover[i] = fmt.Sprintf("%s<br>actual: %.1f", who, r.Actual)
		pred.Y[i] = r.Predicted
		pred.Hover[i] = fmt.Sprintf("%s<br>predicted: %.1f<br>error: %+.1f", who, r.Predicted, r.Predicted-r.Actual)
	}
	c.Series = []Series{actual, pred}
	return c
}

// ClusterProjection scatters the first two principal components of the
// clustering inputs, one series per label with noise first.
func ClusterProjection(res *cluster.Result) *Chart {
	c := &Chart{
		ID:     "cluster-projection",
		Title:  "DBSCAN Clusters (PCA projection)",
		Kind:   KindScatter,
		XLabel: "PC1",
		YLabel: "PC2",
	}
	maxLabel := 0
	for _, l := range res.Labels {
		if l > maxLabel {
			maxLabel = l
		}
	}
	series := make([]Series, maxLabel+1)
	for l := range series {
		series[l].Name = fmt.Sprintf("Cluster %d", l)
	}
	series[cluster.Noise].Name = "Noise"
	for i, l := range res.Labels {
		r := res.Rows[i]
		s := &series[l]
		s.X = append(s.X, res.Projection[i][0])
		s.Y = append(s.Y, res.Projection[i][1])
		s.Hover = append(s.Hover, fmt.Sprintf("%s (%s)<br>%s", r.ID, elements.Name(r.WorkingIon), s.Name))
	}
	for _, s := range series {
		if len(s.X) > 0 {
			c.Series = append(c.Series, s)
		}
	}
	return c
}

func finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
