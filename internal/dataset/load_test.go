package dataset

import (
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func writeCSV(t *testing.T, tbl *Table) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batteries.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create csv: %v", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header()); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for _, r := range tbl.Records {
		if err := w.Write(r.Row()); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	w.Flush()
	if err := f.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}
	return path
}

func TestLoadCSVRoundTrip(t *testing.T) {
	want := Synthetic(25, 7)
	path := writeCSV(t, want)

	got, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Source != "batteries.csv" {
		t.Fatalf("source = %q", got.Source)
	}
	if diff := cmp.Diff(want.Records, got.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestReadMissingColumn(t *testing.T) {
	hdr := Header()[1:]
	_, err := Read(strings.NewReader(strings.Join(hdr, ",") + "\n"))
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if !strings.Contains(err.Error(), ColID) {
		t.Fatalf("error should name the missing column: %v", err)
	}
}

func TestReadMalformedNumber(t *testing.T) {
	row := Synthetic(1, 1).Records[0].Row()
	row[len(TextColumns())+1] = "three"
	in := strings.Join(Header(), ",") + "\n" + strings.Join(row, ",") + "\n"
	_, err := Read(strings.NewReader(in))
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !strings.Contains(err.Error(), "row 2") || !strings.Contains(err.Error(), ColAverageVoltage) {
		t.Fatalf("error should locate the cell: %v", err)
	}
}

func TestReadMissingValuesAreNaN(t *testing.T) {
	row := Synthetic(1, 1).Records[0].Row()
	row[len(TextColumns())] = "NA"
	row[len(TextColumns())+2] = ""
	in := strings.Join(Header(), ",") + "\n" + strings.Join(row, ",") + "\n"
	tbl, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	r := tbl.Records[0]
	if !math.IsNaN(r.MaxDeltaVolume) || !math.IsNaN(r.GravimetricCapacity) {
		t.Fatalf("expected NaN for missing cells, got %v %v", r.MaxDeltaVolume, r.GravimetricCapacity)
	}
}

func TestLoadXLSX(t *testing.T) {
	want := Synthetic(6, 3)
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for j, h := range Header() {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			t.Fatalf("set header: %v", err)
		}
	}
	for i, r := range want.Records {
		for j, v := range r.Row() {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "batteries.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}

	got, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load xlsx: %v", err)
	}
	if diff := cmp.Diff(want.Records, got.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestTableHelpers(t *testing.T) {
	tbl := Synthetic(40, 11)
	if got := len(tbl.Column(ColAverageVoltage)); got != 40 {
		t.Fatalf("column len = %d", got)
	}
	groups := tbl.GroupByIon()
	total := 0
	for _, ion := range tbl.Ions() {
		total += groups[ion].Len()
	}
	if total != tbl.Len() {
		t.Fatalf("group sizes sum to %d, want %d", total, tbl.Len())
	}
	a := tbl.Sample(10, 5)
	b := tbl.Sample(10, 5)
	if diff := cmp.Diff(a.Records, b.Records); diff != "" {
		t.Fatalf("seeded sample not stable:\n%s", diff)
	}
	if a.Len() != 10 {
		t.Fatalf("sample len = %d", a.Len())
	}
	if _, ok := a.Records[0].Value("Nope"); ok {
		t.Fatalf("unknown column should not resolve")
	}
}
