package elements

import "testing"

func TestName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Li", "Lithium"},
		{"Na", "Sodium"},
		{"Zn", "Zinc"},
		{"Xx", "Xx"},
	}
	for _, tt := range tests {
		if got := Name(tt.in); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := Label("Mg"); got != "Magnesium (Mg)" {
		t.Errorf("Label(Mg) = %q", got)
	}
	if got := Label("??"); got != "??" {
		t.Errorf("Label(??) = %q", got)
	}
}
