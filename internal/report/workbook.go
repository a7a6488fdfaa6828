package report

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/voltlens/internal/analysis"
	"github.com/KaramelBytes/voltlens/internal/elements"
	"github.com/KaramelBytes/voltlens/internal/utils"
)

// Workbook sheet names.
const (
	SheetSummary     = "Summary"
	SheetGroupMeans  = "Group Means"
	SheetCV          = "Cross Validation"
	SheetPredictions = "Predictions"
	SheetClusters    = "Clusters"
)

// sheet appends rows to one worksheet and keeps the first error.
type sheet struct {
	f    *excelize.File
	name string
	row  int
	err  error
}

func (s *sheet) append(values ...any) {
	if s.err != nil {
		return
	}
	s.row++
	for i, v := range values {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, s.row)
		if err != nil {
			s.err = err
			return
		}
		if err := s.f.SetCellValue(s.name, cell, v); err != nil {
			s.err = fmt.Errorf("sheet %s cell %s: %w", s.name, cell, err)
			return
		}
	}
}

func (s *sheet) widths(first float64, rest float64, cols int) {
	if s.err != nil || cols == 0 {
		return
	}
	if err := s.f.SetColWidth(s.name, "A", "A", first); err != nil {
		s.err = err
		return
	}
	if cols > 1 {
		last, _ := excelize.ColumnNumberToName(cols)
		s.err = s.f.SetColWidth(s.name, "B", last, rest)
	}
}

// WriteWorkbook exports the summary, per-ion means, model results and
// cluster summaries to an .xlsx file.
func (d *Document) WriteWorkbook(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	newSheet := func(name string) *sheet {
		if name == SheetSummary {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return &sheet{err: err}
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return &sheet{err: err}
		}
		return &sheet{f: f, name: name}
	}
	var sheets []*sheet

	sum := newSheet(SheetSummary)
	sheets = append(sheets, sum)
	sum.append("Column", "Kind", "Non-null", "Missing", "Unique", "Min", "Q1", "Median", "Mean", "Q3", "Max", "Std")
	for _, c := range d.Summary.Columns {
		if c.Kind == analysis.KindNumeric {
			sum.append(c.Name, c.Kind, c.NonNull, c.Missing, c.Unique, c.Min, c.Q1, c.Median, c.Mean, c.Q3, c.Max, c.Std)
		} else {
			sum.append(c.Name, c.Kind, c.NonNull, c.Missing, c.Unique)
		}
	}
	sum.widths(28, 12, 12)

	gm := newSheet(SheetGroupMeans)
	sheets = append(sheets, gm)
	header := []any{"Working Ion", "Element", "Records"}
	for _, c := range d.GroupColumns {
		header = append(header, c)
	}
	gm.append(header...)
	for _, g := range d.Groups {
		row := []any{g.Ion, elements.Name(g.Ion), g.Size}
		for _, c := range d.GroupColumns {
			m, ok := g.Metrics[c]
			if !ok {
				row = append(row, math.NaN())
				continue
			}
			row = append(row, m.Mean)
		}
		gm.append(row...)
	}
	gm.widths(12, 20, len(header))

	if m := d.Model; m != nil {
		cv := newSheet(SheetCV)
		sheets = append(sheets, cv)
		cv.append("mtry", "RMSE", "MAE", "R2", "Selected")
		for _, c := range m.CV {
			cv.append(c.Mtry, c.RMSE, c.MAE, c.R2, c.Mtry == m.Forest.Mtry)
		}
		if h := d.Holdout; h != nil {
			cv.append()
			cv.append("Held-out rows", "RMSE", "MAE", "R2")
			cv.append(h.N, h.RMSE, h.MAE, h.R2)
		}
		cv.widths(14, 12, 5)

		pr := newSheet(SheetPredictions)
		sheets = append(sheets, pr)
		pr.append("Battery ID", "Working Ion", "Actual", "Predicted", "Error")
		for _, s := range d.Sample {
			pr.append(s.ID, s.Ion, s.Actual, s.Predicted, s.Predicted-s.Actual)
		}
		pr.widths(24, 14, 5)
	}

	if c := d.Clusters; c != nil {
		cl := newSheet(SheetClusters)
		sheets = append(sheets, cl)
		header := []any{"Cluster", "Size", "Top Ion"}
		for _, col := range c.Params.Columns {
			header = append(header, "Mean "+col)
		}
		cl.append(header...)
		for _, g := range c.Groups {
			top := ""
			if len(g.Ions) > 0 {
				top = g.Ions[0].Ion
			}
			row := []any{g.ID, g.Size, top}
			for _, col := range c.Params.Columns {
				row = append(row, g.Means[col])
			}
			cl.append(row...)
		}
		cl.append("Noise", c.Noise)
		cl.widths(10, 18, len(header))
	}

	for _, s := range sheets {
		if s.err != nil {
			return fmt.Errorf("write workbook: %w", s.err)
		}
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
