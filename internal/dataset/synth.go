package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// Synthetic generates a plausible battery table for tests and demos.
// Gravimetric energy is voltage times capacity plus noise, so a regressor
// has something real to learn.
func Synthetic(n int, seed int64) *Table {
	rng := rand.New(rand.NewSource(seed))
	ions := []struct {
		sym     string
		weight  float64
		voltage float64
	}{
		{"Li", 0.55, 3.6},
		{"Na", 0.15, 2.9},
		{"Mg", 0.12, 2.2},
		{"Ca", 0.08, 2.6},
		{"Zn", 0.10, 1.4},
	}
	t := &Table{Source: "synthetic.csv", Records: make([]Record, 0, n)}
	for i := 0; i < n; i++ {
		u := rng.Float64()
		ion := ions[len(ions)-1]
		for _, c := range ions {
			if u < c.weight {
				ion = c
				break
			}
			u -= c.weight
		}
		voltage := math.Max(0.1, ion.voltage+rng.NormFloat64()*0.5)
		capacity := 40 + rng.Float64()*260
		density := 2.5 + rng.Float64()*2.5
		energy := voltage*capacity + rng.NormFloat64()*15
		afc := rng.Float64() * 0.2
		t.Records = append(t.Records, Record{
			ID:                      fmt.Sprintf("mp-%06d_%s", 1000+i, ion.sym),
			Formula:                 fmt.Sprintf("%sFePO4", ion.sym),
			WorkingIon:              ion.sym,
			FormulaCharge:           "FePO4",
			FormulaDischarge:        fmt.Sprintf("%sFePO4", ion.sym),
			MaxDeltaVolume:          math.Abs(rng.NormFloat64() * 0.08),
			AverageVoltage:          voltage,
			GravimetricCapacity:     capacity,
			VolumetricCapacity:      capacity * density,
			GravimetricEnergy:       energy,
			VolumetricEnergy:        energy * density,
			AtomicFractionCharge:    afc,
			AtomicFractionDischarge: afc + 0.05 + rng.Float64()*0.25,
			StabilityCharge:         math.Abs(rng.NormFloat64() * 0.15),
			StabilityDischarge:      math.Abs(rng.NormFloat64() * 0.12),
			Steps:                   float64(1 + rng.Intn(3)),
			MaxVoltageStep:          math.Abs(rng.NormFloat64() * 0.3),
		})
	}
	return t
}

// Header returns the canonical CSV header.
func Header() []string {
	return append(TextColumns(), NumericColumns()...)
}

// Row renders a record as CSV fields in Header order.
func (r Record) Row() []string {
	out := make([]string, 0, len(textFields)+len(numFields))
	for _, f := range textFields {
		out = append(out, *f.ref(&r))
	}
	for _, f := range numFields {
		v := *f.ref(&r)
		if math.IsNaN(v) {
			out = append(out, "NA")
			continue
		}
		out = append(out, fmt.Sprintf("%g", v))
	}
	return out
}
