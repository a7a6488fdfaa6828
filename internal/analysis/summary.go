package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/voltlens/internal/dataset"
)

// Column kinds reported by the summarizer.
const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
	KindText        = "text"
)

// maxTopValues caps the frequency table of a text column.
const maxTopValues = 8

// Summary is the descriptive overview of the battery table.
type Summary struct {
	Name    string
	Rows    int
	Cols    int
	Missing int
	Columns []ColumnSummary
}

// ColumnSummary holds the statistics of one column. Numeric fields are
// zero for text columns and TopValues is empty for numeric ones.
type ColumnSummary struct {
	Name    string
	Kind    string
	NonNull int
	Missing int
	Unique  int

	Min, Q1, Median, Mean, Q3, Max, Std float64

	TopValues []CategoryCount
}

// CategoryCount is one entry of a frequency table.
type CategoryCount struct {
	Value string
	Count int
}

// Summarize computes row/column counts, missing counts and per-column
// summaries. It does not modify t.
func Summarize(t *dataset.Table) *Summary {
	s := &Summary{Name: t.Source, Rows: t.Len()}
	for _, name := range dataset.TextColumns() {
		cs := summarizeText(t, name)
		s.Missing += cs.Missing
		s.Columns = append(s.Columns, cs)
	}
	for _, name := range dataset.NumericColumns() {
		cs := summarizeNumeric(name, t.Column(name))
		s.Missing += cs.Missing
		s.Columns = append(s.Columns, cs)
	}
	s.Cols = len(s.Columns)
	return s
}

// Column returns the summary of the named column.
func (s *Summary) Column(name string) (ColumnSummary, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

func summarizeText(t *dataset.Table, name string) ColumnSummary {
	cs := ColumnSummary{Name: name, Kind: KindText}
	counts := map[string]int{}
	for _, r := range t.Records {
		v, _ := r.Text(name)
		if v == "" {
			cs.Missing++
			continue
		}
		cs.NonNull++
		counts[v]++
	}
	cs.Unique = len(counts)
	// Few distinct labels relative to rows means a category, not free text.
	if cs.Unique > 0 && cs.Unique <= 50 && cs.Unique*2 <= cs.NonNull {
		cs.Kind = KindCategorical
	}
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > maxTopValues {
		tops = tops[:maxTopValues]
	}
	cs.TopValues = tops
	return cs
}

func summarizeNumeric(name string, values []float64) ColumnSummary {
	cs := ColumnSummary{Name: name, Kind: KindNumeric}
	s := sortedFinite(values)
	cs.NonNull = len(s)
	cs.Missing = len(values) - len(s)
	if len(s) == 0 {
		nan := math.NaN()
		cs.Min, cs.Q1, cs.Median, cs.Mean, cs.Q3, cs.Max, cs.Std = nan, nan, nan, nan, nan, nan, nan
		return cs
	}
	cs.Min = s[0]
	cs.Max = s[len(s)-1]
	cs.Q1 = quantile(s, 0.25)
	cs.Median = quantile(s, 0.5)
	cs.Q3 = quantile(s, 0.75)
	if len(s) > 1 {
		cs.Mean, cs.Std = stat.MeanStdDev(s, nil)
	} else {
		cs.Mean = s[0]
	}
	return cs
}

// Markdown renders the summary as a compact report section.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", s.Cols))
	b.WriteString(fmt.Sprintf("Missing values: %d\n\n", s.Missing))

	b.WriteString("[SCHEMA]\n")
	for _, c := range s.Columns {
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %d)", c.Name, c.Kind, c.NonNull, c.Missing))
		switch c.Kind {
		case KindNumeric:
			b.WriteString(fmt.Sprintf("; min %.4g, q1 %.4g, median %.4g, mean %.4g, q3 %.4g, max %.4g",
				c.Min, c.Q1, c.Median, c.Mean, c.Q3, c.Max))
		default:
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
