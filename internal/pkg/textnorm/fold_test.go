package textnorm

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Montréal  Canadiens ", "montreal canadiens"},
		{"St. Louis Blues", "st. louis blues"},
		{"L.A. Clippers", "l.a. clippers"},
		{"Over/Under", "over/under"},
		{"Money_Line", "money line"},
		{"Atlético (MIN)", "atletico min"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFold_Idempotent(t *testing.T) {
	for _, s := range []string{"Montréal Canadiens", "  NY   Rangers", "Winner 2-Way"} {
		once := Fold(s)
		if twice := Fold(once); twice != once {
			t.Errorf("Fold not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestCollapse(t *testing.T) {
	if got := Collapse("  Point   SPREAD "); got != "point spread" {
		t.Errorf("Collapse = %q", got)
	}
}
