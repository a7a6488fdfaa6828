// Package elements maps working-ion symbols to element names for labels
// and tooltips. Unknown symbols are returned as-is.
package elements

var names = map[string]string{
	"H":  "Hydrogen",
	"Li": "Lithium",
	"Na": "Sodium",
	"K":  "Potassium",
	"Rb": "Rubidium",
	"Cs": "Cesium",
	"Be": "Beryllium",
	"Mg": "Magnesium",
	"Ca": "Calcium",
	"Sr": "Strontium",
	"Ba": "Barium",
	"Y":  "Yttrium",
	"Zn": "Zinc",
	"Al": "Aluminium",
	"Cu": "Copper",
	"Fe": "Iron",
	"Ni": "Nickel",
	"Co": "Cobalt",
	"Mn": "Manganese",
}

// Name returns the full element name for a symbol.
func Name(symbol string) string {
	if n, ok := names[symbol]; ok {
		return n
	}
	return symbol
}

// Label returns "Lithium (Li)" style labels.
func Label(symbol string) string {
	if n, ok := names[symbol]; ok {
		return n + " (" + symbol + ")"
	}
	return symbol
}
