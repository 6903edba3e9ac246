package canonical

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidLine = errors.New("invalid line")

var (
	quartersPerPoint = decimal.NewFromInt(4)
	quarterPoint     = decimal.New(25, -2)
)

// NormalizeLine keeps only digits, signs and the decimal point, parses the rest as an exact
// decimal and rounds it to the nearest 0.25 with ties to the even quarter.
// "-3.0", "-3" and "(-3)" all become -3; 0.125 becomes 0 and 0.375 becomes 0.5.
func NormalizeLine(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	s := strings.TrimPrefix(b.String(), "+")
	if s == "" || s == "-" || s == "." {
		return decimal.Decimal{}, fmt.Errorf("%w: %q has no number", ErrInvalidLine, raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q: %v", ErrInvalidLine, raw, err)
	}

	return d.Mul(quartersPerPoint).RoundBank(0).Mul(quarterPoint), nil
}
