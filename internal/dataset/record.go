package dataset

import (
	"math"
	"math/rand"
	"sort"
)

// Column names as they appear in the source CSV header.
const (
	ColID               = "Battery ID"
	ColFormula          = "Battery Formula"
	ColWorkingIon       = "Working Ion"
	ColFormulaCharge    = "Formula Charge"
	ColFormulaDischarge = "Formula Discharge"

	ColMaxDeltaVolume          = "Max Delta Volume"
	ColAverageVoltage          = "Average Voltage"
	ColGravimetricCapacity     = "Gravimetric Capacity"
	ColVolumetricCapacity      = "Volumetric Capacity"
	ColGravimetricEnergy       = "Gravimetric Energy"
	ColVolumetricEnergy        = "Volumetric Energy"
	ColAtomicFractionCharge    = "Atomic Fraction Charge"
	ColAtomicFractionDischarge = "Atomic Fraction Discharge"
	ColStabilityCharge         = "Stability Charge"
	ColStabilityDischarge      = "Stability Discharge"
	ColSteps                   = "Steps"
	ColMaxVoltageStep          = "Max Voltage Step"
)

// Record is one battery material row.
type Record struct {
	ID               string
	Formula          string
	WorkingIon       string
	FormulaCharge    string
	FormulaDischarge string

	MaxDeltaVolume          float64
	AverageVoltage          float64
	GravimetricCapacity     float64
	VolumetricCapacity      float64
	GravimetricEnergy       float64
	VolumetricEnergy        float64
	AtomicFractionCharge    float64
	AtomicFractionDischarge float64
	StabilityCharge         float64
	StabilityDischarge      float64
	Steps                   float64
	MaxVoltageStep          float64
}

type textField struct {
	name string
	ref  func(*Record) *string
}

type numField struct {
	name string
	ref  func(*Record) *float64
}

var textFields = []textField{
	{ColID, func(r *Record) *string { return &r.ID }},
	{ColFormula, func(r *Record) *string { return &r.Formula }},
	{ColWorkingIon, func(r *Record) *string { return &r.WorkingIon }},
	{ColFormulaCharge, func(r *Record) *string { return &r.FormulaCharge }},
	{ColFormulaDischarge, func(r *Record) *string { return &r.FormulaDischarge }},
}

var numFields = []numField{
	{ColMaxDeltaVolume, func(r *Record) *float64 { return &r.MaxDeltaVolume }},
	{ColAverageVoltage, func(r *Record) *float64 { return &r.AverageVoltage }},
	{ColGravimetricCapacity, func(r *Record) *float64 { return &r.GravimetricCapacity }},
	{ColVolumetricCapacity, func(r *Record) *float64 { return &r.VolumetricCapacity }},
	{ColGravimetricEnergy, func(r *Record) *float64 { return &r.GravimetricEnergy }},
	{ColVolumetricEnergy, func(r *Record) *float64 { return &r.VolumetricEnergy }},
	{ColAtomicFractionCharge, func(r *Record) *float64 { return &r.AtomicFractionCharge }},
	{ColAtomicFractionDischarge, func(r *Record) *float64 { return &r.AtomicFractionDischarge }},
	{ColStabilityCharge, func(r *Record) *float64 { return &r.StabilityCharge }},
	{ColStabilityDischarge, func(r *Record) *float64 { return &r.StabilityDischarge }},
	{ColSteps, func(r *Record) *float64 { return &r.Steps }},
	{ColMaxVoltageStep, func(r *Record) *float64 { return &r.MaxVoltageStep }},
}

// TextColumns returns the categorical/text column names in schema order.
func TextColumns() []string {
	out := make([]string, len(textFields))
	for i, f := range textFields {
		out[i] = f.name
	}
	return out
}

// NumericColumns returns the numeric column names in schema order.
func NumericColumns() []string {
	out := make([]string, len(numFields))
	for i, f := range numFields {
		out[i] = f.name
	}
	return out
}

// IsNumeric reports whether name is one of the numeric schema columns.
func IsNumeric(name string) bool {
	for _, f := range numFields {
		if f.name == name {
			return true
		}
	}
	return false
}

// Value returns the numeric value of the named column. ok is false for
// unknown or non-numeric columns.
func (r Record) Value(name string) (v float64, ok bool) {
	for _, f := range numFields {
		if f.name == name {
			return *f.ref(&r), true
		}
	}
	return math.NaN(), false
}

// Text returns the string value of the named text column.
func (r Record) Text(name string) (string, bool) {
	for _, f := range textFields {
		if f.name == name {
			return *f.ref(&r), true
		}
	}
	return "", false
}

// Table is the in-memory record set. It is treated as immutable; every
// derivation returns a new Table sharing no slices with the receiver.
type Table struct {
	Source  string
	Records []Record
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Column extracts the named numeric column. Unknown columns yield NaNs.
func (t *Table) Column(name string) []float64 {
	out := make([]float64, t.Len())
	for i, r := range t.Records {
		out[i], _ = r.Value(name)
	}
	return out
}

// Matrix extracts the named columns as row-major rows.
func (t *Table) Matrix(columns []string) [][]float64 {
	out := make([][]float64, t.Len())
	for i, r := range t.Records {
		row := make([]float64, len(columns))
		for j, c := range columns {
			row[j], _ = r.Value(c)
		}
		out[i] = row
	}
	return out
}

// Filter returns a new table holding the records for which keep is true.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := &Table{Source: t.Source}
	for _, r := range t.Records {
		if keep(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// Ions returns the distinct working ions sorted by symbol.
func (t *Table) Ions() []string {
	seen := map[string]struct{}{}
	for _, r := range t.Records {
		seen[r.WorkingIon] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// GroupByIon splits the table by working ion.
func (t *Table) GroupByIon() map[string]*Table {
	out := map[string]*Table{}
	for _, r := range t.Records {
		g := out[r.WorkingIon]
		if g == nil {
			g = &Table{Source: t.Source}
			out[r.WorkingIon] = g
		}
		g.Records = append(g.Records, r)
	}
	return out
}

// Sample draws n records without replacement using a seeded source.
// If n >= Len the whole table is returned in shuffled order.
func (t *Table) Sample(n int, seed int64) *Table {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(t.Len())
	if n > len(perm) {
		n = len(perm)
	}
	out := &Table{Source: t.Source, Records: make([]Record, 0, n)}
	for _, i := range perm[:n] {
		out.Records = append(out.Records, t.Records[i])
	}
	return out
}
