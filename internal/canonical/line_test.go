package canonical

import (
	"errors"
	"testing"
)

func TestNormalizeLine(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"-3.0", "-3"},
		{"-3", "-3"},
		{"(-3)", "-3"},
		{"+7.5", "7.5"},
		{"220.5", "220.5"},
		{"o 9.5", "9.5"},
		{"2.25", "2.25"},
		{"2.2", "2.25"},
		{"0.125", "0"},
		{"0.375", "0.5"},
		{"0.625", "0.5"},
		{"0.875", "1"},
		{"-0.125", "0"},
		{"-1.375", "-1.5"},
		{"3.1", "3"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeLine(tt.raw)
			if err != nil {
				t.Fatalf("NormalizeLine(%q) error: %v", tt.raw, err)
			}
			if got.String() != tt.want {
				t.Errorf("NormalizeLine(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeLine_Idempotent(t *testing.T) {
	for _, raw := range []string{"-3.0", "7.4", "0.125", "-11.63", "215"} {
		first, err := NormalizeLine(raw)
		if err != nil {
			t.Fatalf("NormalizeLine(%q): %v", raw, err)
		}
		second, err := NormalizeLine(first.String())
		if err != nil {
			t.Fatalf("NormalizeLine(%q): %v", first, err)
		}
		if !first.Equal(second) {
			t.Errorf("not idempotent for %q: %s then %s", raw, first, second)
		}
	}
}

func TestNormalizeLine_Invalid(t *testing.T) {
	for _, raw := range []string{"", "pk", "-", "1.2.3", "3-4"} {
		if _, err := NormalizeLine(raw); !errors.Is(err, ErrInvalidLine) {
			t.Errorf("NormalizeLine(%q) error = %v, want ErrInvalidLine", raw, err)
		}
	}
}
