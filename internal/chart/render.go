package chart

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/voltlens/internal/utils"
)

// Render draws c to path. The image format follows the file extension
// (.png, .svg, .pdf, ...).
func Render(c *Chart, path string) error {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Legend.Top = true

	var err error
	w, h := 8*vg.Inch, 5*vg.Inch
	switch c.Kind {
	case KindHistogram:
		err = addHistogram(p, c)
	case KindBar:
		err = addBars(p, c)
	case KindLine:
		err = addLines(p, c)
	case KindScatter:
		err = addScatter(p, c)
	case KindHeatmap:
		err = addHeatmap(p, c)
		w, h = 11*vg.Inch, 10*vg.Inch
	default:
		err = fmt.Errorf("unknown chart kind %q", c.Kind)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", c.ID, err)
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("render %s: %w", c.ID, err)
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func addHistogram(p *plot.Plot, c *Chart) error {
	p.Add(plotter.NewGrid())
	if len(c.Series) == 0 || len(c.Series[0].X) == 0 {
		return nil
	}
	vals := plotter.Values(c.Series[0].X)
	bins := int(math.Ceil(math.Sqrt(float64(len(vals)))))
	bins = max(10, min(40, bins))
	hist, err := plotter.NewHist(vals, bins)
	if err != nil {
		return err
	}
	hist.FillColor = plotutil.Color(0)
	p.Add(hist)
	return nil
}

func addBars(p *plot.Plot, c *Chart) error {
	if len(c.Categories) == 0 {
		return nil
	}
	n := len(c.Series)
	width := vg.Points(math.Max(4, 48/float64(n)))
	for i, s := range c.Series {
		vals := make(plotter.Values, len(c.Categories))
		for j := range vals {
			if j < len(s.Y) && !math.IsNaN(s.Y[j]) {
				vals[j] = s.Y[j]
			}
		}
		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return err
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Length(float64(i)-float64(n-1)/2) * width
		p.Add(bars)
		if n > 1 {
			p.Legend.Add(s.Name, bars)
		}
	}
	p.NominalX(c.Categories...)
	if len(c.Categories) > 8 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
	}
	return nil
}

func addLines(p *plot.Plot, c *Chart) error {
	p.Add(plotter.NewGrid())
	for i, s := range c.Series {
		line, err := plotter.NewLine(xys(s))
		if err != nil {
			return err
		}
		line.LineStyle.Width = vg.Points(2)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		if len(c.Series) > 1 {
			p.Legend.Add(s.Name, line)
		}
	}
	return nil
}

func addScatter(p *plot.Plot, c *Chart) error {
	p.Add(plotter.NewGrid())
	for i, s := range c.Series {
		sc, err := plotter.NewScatter(xys(s))
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Radius = vg.Points(2.5)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(s.Name, sc)
	}
	return nil
}

// addHeatmap colours the upper triangle (diagonal included) and writes the
// coefficients of the lower triangle as text.
func addHeatmap(p *plot.Plot, c *Chart) error {
	n := len(c.Labels)
	if n < 2 {
		return nil
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	hm := plotter.NewHeatMap(upperGrid{m: c.Matrix}, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1
	p.Add(hm)

	var pts plotter.XYs
	var text []string
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			pts = append(pts, plotter.XY{X: float64(j), Y: float64(n - 1 - i)})
			text = append(text, fmt.Sprintf("%.2f", c.Matrix[i][j]))
		}
	}
	if len(pts) > 0 {
		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: text})
		if err != nil {
			return err
		}
		for i := range labels.TextStyle {
			labels.TextStyle[i].XAlign = draw.XCenter
			labels.TextStyle[i].YAlign = draw.YCenter
			labels.TextStyle[i].Font.Size = vg.Points(8)
		}
		p.Add(labels)
	}

	rev := make([]string, n)
	for i, l := range c.Labels {
		rev[n-1-i] = l
	}
	p.NominalX(c.Labels...)
	p.NominalY(rev...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return nil
}

// upperGrid exposes the upper triangle of a square matrix as a GridXYZ
// with row 0 drawn at the top. Lower cells are NaN and left blank.
type upperGrid struct{ m [][]float64 }

func (g upperGrid) Dims() (c, r int) { return len(g.m), len(g.m) }
func (g upperGrid) X(c int) float64   { return float64(c) }
func (g upperGrid) Y(r int) float64   { return float64(r) }

func (g upperGrid) Z(c, r int) float64 {
	i := len(g.m) - 1 - r
	if c < i {
		return math.NaN()
	}
	return g.m[i][c]
}

func xys(s Series) plotter.XYs {
	n := min(len(s.X), len(s.Y))
	pts := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(s.X[i]) || math.IsNaN(s.Y[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: s.X[i], Y: s.Y[i]})
	}
	return pts
}
