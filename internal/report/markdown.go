package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/voltlens/internal/elements"
	"github.com/KaramelBytes/voltlens/internal/utils"
)

// Markdown renders the report as text. Chart images are linked relative
// to the output directory when they have been rendered.
func (d *Document) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", Title)
	fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", d.RunID, d.Generated.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("## Dataset\n\n```\n")
	b.WriteString(d.Summary.Markdown())
	b.WriteString("```\n\n")

	if len(d.TopPairs) > 0 {
		b.WriteString("### Strongest correlations\n\n| Pair | r |\n|---|---:|\n")
		for _, p := range d.TopPairs {
			fmt.Fprintf(&b, "| %s / %s | %.3f |\n", p.A, p.B, p.R)
		}
		b.WriteString("\n")
	}

	if m := d.Model; m != nil {
		b.WriteString("## Energy model\n\n")
		fmt.Fprintf(&b, "Random forest predicting %s from %s: %d trees, mtry %d, %d training rows.",
			m.Target, strings.Join(m.Predictors, ", "), len(m.Forest.Trees), m.Forest.Mtry, m.TrainRows)
		if d.Cached {
			b.WriteString(" Loaded from cache.")
		}
		b.WriteString("\n\n| mtry | CV RMSE | CV MAE | CV R² |\n|---:|---:|---:|---:|\n")
		for _, c := range m.CV {
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", c.Mtry, formatNum(c.RMSE), formatNum(c.MAE), formatNum(c.R2))
		}
		b.WriteString("\n")
		if h := d.Holdout; h != nil {
			fmt.Fprintf(&b, "Held-out split: %d rows, RMSE %s, MAE %s, R² %s.\n\n", h.N, formatNum(h.RMSE), formatNum(h.MAE), formatNum(h.R2))
		}
		if len(d.Sample) > 0 {
			b.WriteString("| Battery ID | Working Ion | Actual | Predicted |\n|---|---|---:|---:|\n")
			for _, s := range d.Sample {
				fmt.Fprintf(&b, "| %s | %s | %.1f | %.1f |\n", s.ID, elements.Label(s.Ion), s.Actual, s.Predicted)
			}
			b.WriteString("\n")
		}
	}

	if c := d.Clusters; c != nil {
		b.WriteString("## Clusters\n\n")
		fmt.Fprintf(&b, "DBSCAN (eps %g, min points %d): %d clusters, %d noise records.\n\n", c.Params.Eps, c.Params.MinPts, len(c.Groups), c.Noise)
		if len(c.Groups) > 0 {
			b.WriteString("| Cluster | Size | Working ions |\n|---:|---:|---|\n")
			for _, g := range c.Groups {
				ions := make([]string, len(g.Ions))
				for i, ic := range g.Ions {
					ions[i] = fmt.Sprintf("%s %d", elements.Label(ic.Ion), ic.Count)
				}
				fmt.Fprintf(&b, "| %d | %d | %s |\n", g.ID, g.Size, strings.Join(ions, ", "))
			}
			b.WriteString("\n")
		}
	}

	for _, s := range d.Sections {
		fmt.Fprintf(&b, "## %s\n\n", s.Title)
		for _, c := range s.Charts {
			if rel, ok := d.images[c.ID]; ok {
				fmt.Fprintf(&b, "![%s](%s)\n\n", c.Title, rel)
			} else {
				fmt.Fprintf(&b, "- %s\n", c.Title)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WriteMarkdown writes dir/report.md.
func (d *Document) WriteMarkdown(dir string) error {
	if err := utils.SafeWriteFile(filepath.Join(dir, "report.md"), []byte(d.Markdown())); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}
	return nil
}
