package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AmericanToDecimal converts American odds (+150, -110) to a decimal price.
func AmericanToDecimal(american decimal.Decimal) (decimal.Decimal, error) {
	switch {
	case american.GreaterThanOrEqual(hundred):
		return one.Add(american.Div(hundred)), nil
	case american.LessThanOrEqual(hundred.Neg()):
		return one.Add(hundred.DivRound(american.Abs(), Precision)), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: american odds %s between -100 and +100", ErrInvalidPrice, american)
	}
}

// DecimalToAmerican converts a decimal price to American odds rounded to cents.
func DecimalToAmerican(d decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidatePrice(d); err != nil {
		return decimal.Zero, err
	}
	b := d.Sub(one)
	if d.GreaterThanOrEqual(two) {
		return b.Mul(hundred).Round(2), nil
	}
	return hundred.Neg().DivRound(b, 2), nil
}
