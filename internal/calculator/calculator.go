package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidatePrice rejects decimal prices that are not strictly greater than 1.
func ValidatePrice(d decimal.Decimal) error {
	if !d.GreaterThan(one) {
		return fmt.Errorf("%w: %s must be greater than 1", ErrInvalidPrice, d)
	}
	return nil
}

// ValidateProbability rejects probabilities outside the open interval (0, 1).
func ValidateProbability(p decimal.Decimal) error {
	if !p.IsPositive() || !p.LessThan(one) {
		return fmt.Errorf("%w: %s is outside (0, 1)", ErrInvalidProbability, p)
	}
	return nil
}

// ExpectedValue is p*d - 1 as a fraction of the stake. It may be negative.
func ExpectedValue(p, d decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidatePrice(d); err != nil {
		return decimal.Zero, err
	}
	if err := ValidateProbability(p); err != nil {
		return decimal.Zero, err
	}
	return p.Mul(d).Sub(one), nil
}

// Kelly is (b*p - q) / b with b = d - 1 and q = 1 - p. It may be negative.
func Kelly(p, d decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidatePrice(d); err != nil {
		return decimal.Zero, err
	}
	if err := ValidateProbability(p); err != nil {
		return decimal.Zero, err
	}
	b := d.Sub(one)
	q := one.Sub(p)
	return b.Mul(p).Sub(q).DivRound(b, Precision), nil
}

// RecommendedStake clamps kelly to [0, limit].
func RecommendedStake(kelly, limit decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(kelly, decimal.Zero), limit)
}
