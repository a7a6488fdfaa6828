// Package report assembles the exploratory report and writes it as HTML,
// Markdown and an Excel workbook.
package report

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/voltlens/internal/analysis"
	"github.com/KaramelBytes/voltlens/internal/chart"
	"github.com/KaramelBytes/voltlens/internal/cluster"
	"github.com/KaramelBytes/voltlens/internal/dataset"
	"github.com/KaramelBytes/voltlens/internal/forest"
)

// ErrNoData is returned when Build is given an empty table.
var ErrNoData = errors.New("no records to report")

// Input collects the pipeline stages a report is built from. Model and
// Clusters are optional; their sections are omitted when nil.
type Input struct {
	Table    *dataset.Table
	Model    *forest.Model
	Cached   bool
	Holdout  *forest.Metrics
	Curves   []forest.Curve
	Sample   []forest.Comparison
	Clusters *cluster.Result
	Logger   *slog.Logger
}

// Section is a titled group of charts.
type Section struct {
	Title  string
	Charts []*chart.Chart
}

// Document is an assembled report.
type Document struct {
	RunID     string
	Generated time.Time
	Source    string

	Summary      *analysis.Summary
	TopPairs     []analysis.PairCorr
	GroupColumns []string
	Groups       []analysis.GroupStats

	Model   *forest.Model
	Cached  bool
	Holdout *forest.Metrics
	Sample  []forest.Comparison

	Clusters *cluster.Result
	Sections []Section

	// images maps chart IDs to paths relative to the output directory.
	images map[string]string
	log    *slog.Logger
}

// Build summarizes the table and builds every chart.
func Build(in Input) (*Document, error) {
	if in.Table == nil || in.Table.Len() == 0 {
		return nil, fmt.Errorf("build report: %w", ErrNoData)
	}
	log := in.Logger
	if log == nil {
		log = slog.Default()
	}
	t := in.Table
	numeric := dataset.NumericColumns()
	d := &Document{
		RunID:        uuid.NewString(),
		Generated:    time.Now().UTC(),
		Source:       t.Source,
		Summary:      analysis.Summarize(t),
		TopPairs:     analysis.Correlations(t, numeric).Top(5),
		GroupColumns: numeric,
		Groups:       analysis.GroupByIon(t, numeric, true),
		Model:        in.Model,
		Cached:       in.Cached,
		Holdout:      in.Holdout,
		Sample:       in.Sample,
		Clusters:     in.Clusters,
		log:          log,
	}

	d.Sections = append(d.Sections,
		Section{Title: "Distributions", Charts: chart.Distributions(t)},
		Section{Title: "Working Ions", Charts: []*chart.Chart{
			chart.IonCounts(t),
			chart.GroupedMeans(t, "Capacity by Working Ion", dataset.ColGravimetricCapacity, dataset.ColVolumetricCapacity),
			chart.GroupedMeans(t, "Energy by Working Ion", dataset.ColGravimetricEnergy, dataset.ColVolumetricEnergy),
			chart.GroupedMeans(t, "Stability by Working Ion", dataset.ColStabilityCharge, dataset.ColStabilityDischarge),
			chart.VoltageRange(t),
		}},
		Section{Title: "Correlations", Charts: []*chart.Chart{chart.CorrelationMatrix(t)}},
	)
	if in.Model != nil {
		s := Section{Title: "Energy Model", Charts: chart.Sensitivity(in.Curves, in.Model.Target)}
		if len(in.Sample) > 0 {
			s.Charts = append(s.Charts, chart.PredictedVsActual(in.Sample, in.Model.Target))
		}
		d.Sections = append(d.Sections, s)
	}
	if in.Clusters != nil {
		d.Sections = append(d.Sections, Section{Title: "Clusters", Charts: []*chart.Chart{chart.ClusterProjection(in.Clusters)}})
	}
	return d, nil
}

// Charts returns every chart in section order.
func (d *Document) Charts() []*chart.Chart {
	var out []*chart.Chart
	for _, s := range d.Sections {
		out = append(out, s.Charts...)
	}
	return out
}

// RenderCharts draws every chart to dir/charts/<id>.png.
func (d *Document) RenderCharts(dir string) error {
	images := map[string]string{}
	for _, c := range d.Charts() {
		rel := filepath.Join("charts", c.ID+".png")
		if err := chart.Render(c, filepath.Join(dir, rel)); err != nil {
			return err
		}
		images[c.ID] = filepath.ToSlash(rel)
	}
	d.images = images
	d.log.Debug("rendered charts", "count", len(images), "dir", dir)
	return nil
}

// Write renders the charts and writes report.html, report.md and
// tables.xlsx into dir.
func (d *Document) Write(dir string) error {
	if err := d.RenderCharts(dir); err != nil {
		return err
	}
	if err := d.WriteHTML(dir); err != nil {
		return err
	}
	if err := d.WriteMarkdown(dir); err != nil {
		return err
	}
	return d.WriteWorkbook(filepath.Join(dir, "tables.xlsx"))
}
