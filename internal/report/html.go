package report

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/voltlens/internal/analysis"
	"github.com/KaramelBytes/voltlens/internal/chart"
	"github.com/KaramelBytes/voltlens/internal/elements"
	"github.com/KaramelBytes/voltlens/internal/utils"
)

//go:embed templates/report.html
var htmlSource string

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"num":     formatNum,
	"join":    strings.Join,
	"element": elements.Label,
}).Parse(htmlSource))

// Title heads the HTML and Markdown reports.
const Title = "Battery Materials Report"

type htmlChart struct {
	ID    string
	Title string
	Image template.URL
}

type htmlSection struct {
	Title  string
	Charts []htmlChart
}

type htmlData struct {
	Title       string
	Doc         *Document
	Numeric     []analysis.ColumnSummary
	Categorical []analysis.ColumnSummary
	Sections    []htmlSection
	Figures     template.JS
}

// WriteHTML writes dir/report.html with the static charts inlined and the
// interactive figures embedded as JSON. Charts are rendered first if
// RenderCharts has not run.
func (d *Document) WriteHTML(dir string) error {
	if d.images == nil {
		if err := d.RenderCharts(dir); err != nil {
			return err
		}
	}
	data := htmlData{Title: Title, Doc: d}
	for _, c := range d.Summary.Columns {
		switch c.Kind {
		case analysis.KindNumeric:
			data.Numeric = append(data.Numeric, c)
		case analysis.KindCategorical:
			data.Categorical = append(data.Categorical, c)
		}
	}

	figures := []chart.Figure{}
	for _, s := range d.Sections {
		hs := htmlSection{Title: s.Title}
		for _, c := range s.Charts {
			hc := htmlChart{ID: c.ID, Title: c.Title}
			if rel, ok := d.images[c.ID]; ok {
				b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
				if err != nil {
					return fmt.Errorf("read chart %s: %w", c.ID, err)
				}
				hc.Image = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(b))
			}
			hs.Charts = append(hs.Charts, hc)
			figures = append(figures, c.Figure())
		}
		data.Sections = append(data.Sections, hs)
	}
	js, err := json.Marshal(figures)
	if err != nil {
		return fmt.Errorf("marshal figures: %w", err)
	}
	data.Figures = template.JS(js)

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("execute html template: %w", err)
	}
	if err := utils.SafeWriteFile(filepath.Join(dir, "report.html"), buf.Bytes()); err != nil {
		return fmt.Errorf("write html report: %w", err)
	}
	return nil
}

func formatNum(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", v)
}
