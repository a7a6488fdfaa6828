package chart

import (
	"fmt"
	"math"
)

// Figure is the interactive form of a chart: trace and layout objects in
// the shape a browser-side plotting library consumes. NaN values become
// JSON nulls.
type Figure struct {
	ID     string  `json:"id"`
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one plotted series.
type Trace struct {
	Type          string   `json:"type"`
	Name          string   `json:"name,omitempty"`
	Mode          string   `json:"mode,omitempty"`
	X             any      `json:"x,omitempty"`
	Y             any      `json:"y,omitempty"`
	Z             [][]any  `json:"z,omitempty"`
	Text          any      `json:"text,omitempty"`
	HoverInfo     string   `json:"hoverinfo,omitempty"`
	HoverTemplate string   `json:"hovertemplate,omitempty"`
	ColorScale    string   `json:"colorscale,omitempty"`
	ZMin          *float64 `json:"zmin,omitempty"`
	ZMax          *float64 `json:"zmax,omitempty"`
}

// Axis is an axis title and orientation.
type Axis struct {
	Title      string `json:"title,omitempty"`
	AutoRange  string `json:"autorange,omitempty"`
	Automargin bool   `json:"automargin,omitempty"`
}

// Annotation places text at a data coordinate.
type Annotation struct {
	X         any    `json:"x"`
	Y         any    `json:"y"`
	Text      string `json:"text"`
	ShowArrow bool   `json:"showarrow"`
}

// Layout holds figure-level settings.
type Layout struct {
	Title       string       `json:"title"`
	BarMode     string       `json:"barmode,omitempty"`
	XAxis       Axis         `json:"xaxis"`
	YAxis       Axis         `json:"yaxis"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Figure converts c to traces with per-point hover text.
func (c *Chart) Figure() Figure {
	f := Figure{
		ID: c.ID,
		Layout: Layout{
			Title: c.Title,
			XAxis: Axis{Title: c.XLabel, Automargin: true},
			YAxis: Axis{Title: c.YLabel, Automargin: true},
		},
	}
	switch c.Kind {
	case KindHistogram:
		for _, s := range c.Series {
			f.Data = append(f.Data, Trace{
				Type:          "histogram",
				Name:          s.Name,
				X:             nullable(s.X),
				HoverTemplate: "%{x}: %{y} records<extra></extra>",
			})
		}
	case KindBar:
		f.Layout.BarMode = "group"
		for _, s := range c.Series {
			f.Data = append(f.Data, Trace{
				Type:      "bar",
				Name:      s.Name,
				X:         c.Categories,
				Y:         nullable(s.Y),
				Text:      s.Hover,
				HoverInfo: "text",
			})
		}
	case KindLine, KindScatter:
		mode := "lines"
		if c.Kind == KindScatter {
			mode = "markers"
		}
		for _, s := range c.Series {
			f.Data = append(f.Data, Trace{
				Type:      "scatter",
				Mode:      mode,
				Name:      s.Name,
				X:         nullable(s.X),
				Y:         nullable(s.Y),
				Text:      s.Hover,
				HoverInfo: "text",
			})
		}
	case KindHeatmap:
		f.Data, f.Layout.Annotations = heatmapTraces(c)
		f.Layout.YAxis.AutoRange = "reversed"
	}
	return f
}

// heatmapTraces colours the upper triangle and annotates the lower one.
func heatmapTraces(c *Chart) ([]Trace, []Annotation) {
	n := len(c.Labels)
	z := make([][]any, n)
	text := make([][]string, n)
	var notes []Annotation
	for i := 0; i < n; i++ {
		z[i] = make([]any, n)
		text[i] = make([]string, n)
		for j := 0; j < n; j++ {
			if i < len(c.CellHover) && j < len(c.CellHover[i]) {
				text[i][j] = c.CellHover[i][j]
			}
			if j < i {
				notes = append(notes, Annotation{X: c.Labels[j], Y: c.Labels[i], Text: fmt.Sprintf("%.2f", c.Matrix[i][j])})
				continue
			}
			z[i][j] = c.Matrix[i][j]
		}
	}
	lo, hi := -1.0, 1.0
	return []Trace{{
		Type:       "heatmap",
		X:          c.Labels,
		Y:          c.Labels,
		Z:          z,
		Text:       text,
		HoverInfo:  "text",
		ColorScale: "RdBu",
		ZMin:       &lo,
		ZMax:       &hi,
	}}, notes
}

func nullable(vals []float64) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = v
	}
	return out
}
