package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrSchema is returned when the input header is missing a required column.
var ErrSchema = errors.New("dataset schema mismatch")

// Options controls loading behaviour.
type Options struct {
	// Sheet selects the XLSX sheet by name; empty means the first sheet.
	Sheet string
}

// Load reads the battery table from a CSV or XLSX file. Any structural
// problem aborts the load; nothing is returned partially.
func Load(path string, opt Options) (*Table, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return loadXLSX(path, opt.Sheet)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		return nil, err
	}
	t.Source = filepath.Base(path)
	return t, nil
}

// Read parses CSV content with a header row.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: %w: empty input", ErrSchema)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	b, err := newBinder(header)
	if err != nil {
		return nil, err
	}
	t := &Table{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		row, err := b.bind(rec, line)
		if err != nil {
			return nil, err
		}
		t.Records = append(t.Records, row)
	}
	return t, nil
}

func loadXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("open xlsx: %w: workbook has no sheets", ErrSchema)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read header: %w: sheet %q is empty", ErrSchema, sheet)
	}
	b, err := newBinder(rows[0])
	if err != nil {
		return nil, err
	}
	t := &Table{Source: filepath.Base(path)}
	for i, rec := range rows[1:] {
		// GetRows trims trailing empty cells.
		if len(rec) < len(rows[0]) {
			padded := make([]string, len(rows[0]))
			copy(padded, rec)
			rec = padded
		}
		row, err := b.bind(rec, i+2)
		if err != nil {
			return nil, err
		}
		t.Records = append(t.Records, row)
	}
	return t, nil
}

// binder maps header positions onto Record fields.
type binder struct {
	ncol int
	text map[int]textField
	num  map[int]numField
}

func newBinder(header []string) (*binder, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	b := &binder{ncol: len(header), text: map[int]textField{}, num: map[int]numField{}}
	var missing []string
	for _, f := range textFields {
		i, ok := idx[f.name]
		if !ok {
			missing = append(missing, f.name)
			continue
		}
		b.text[i] = f
	}
	for _, f := range numFields {
		i, ok := idx[f.name]
		if !ok {
			missing = append(missing, f.name)
			continue
		}
		b.num[i] = f
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrSchema, strings.Join(missing, ", "))
	}
	return b, nil
}

func (b *binder) bind(rec []string, line int) (Record, error) {
	var r Record
	if len(rec) != b.ncol {
		return r, fmt.Errorf("read row %d: %w: got %d fields, want %d", line, ErrSchema, len(rec), b.ncol)
	}
	for i, f := range b.text {
		*f.ref(&r) = strings.TrimSpace(rec[i])
	}
	for i, f := range b.num {
		v, err := parseCell(rec[i])
		if err != nil {
			return r, fmt.Errorf("read row %d column %q: %w", line, f.name, err)
		}
		*f.ref(&r) = v
	}
	return r, nil
}

// parseCell parses a numeric cell. Empty and NA-style cells are missing
// values and load as NaN.
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "NA", "NAN", "NULL":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	return v, nil
}
