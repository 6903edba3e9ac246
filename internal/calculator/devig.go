// Package calculator prices target-book quotes against the sharp book's vig-free probabilities.
// Every function here is pure and works on exact decimals.
package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places kept by every division.
const Precision int32 = 16

var (
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidProbability = errors.New("invalid probability")
	ErrUnknownVigMethod   = errors.New("unknown vig method")
)

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

const (
	MethodMultiplicative = "multiplicative"
	MethodAdditive       = "additive"
	MethodShin           = "shin"
)

// Devigger turns a two-sided sharp market into vig-free probabilities that sum to exactly one.
type Devigger interface {
	Method() string
	Devig(price, otherPrice decimal.Decimal) (p, pOther decimal.Decimal, err error)
}

// NewDevigger returns the method named in config.
func NewDevigger(method string) (Devigger, error) {
	switch method {
	case "", MethodMultiplicative:
		return Multiplicative{}, nil
	case MethodAdditive:
		return Additive{}, nil
	case MethodShin:
		return Shin{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVigMethod, method)
	}
}

// Multiplicative divides each implied probability by their sum.
// For two sides 1/a / (1/a + 1/b) reduces to b / (a + b).
type Multiplicative struct{}

func (Multiplicative) Method() string { return MethodMultiplicative }

func (Multiplicative) Devig(price, otherPrice decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := validatePair(price, otherPrice); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	p := otherPrice.DivRound(price.Add(otherPrice), Precision)
	return finish(p)
}

// Additive removes an equal share of the overround from both sides.
type Additive struct{}

func (Additive) Method() string { return MethodAdditive }

func (Additive) Devig(price, otherPrice decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := validatePair(price, otherPrice); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	imp := one.DivRound(price, Precision)
	impOther := one.DivRound(otherPrice, Precision)
	overround := imp.Add(impOther).Sub(one)
	p := imp.Sub(overround.Div(two))
	return finish(p)
}

// Shin models the margin as protection against a share z of insider money and solves for z.
// A market without overround has nothing to remove and is normalized multiplicatively.
type Shin struct{}

const shinIterations = 60

func (Shin) Method() string { return MethodShin }

func (Shin) Devig(price, otherPrice decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := validatePair(price, otherPrice); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	imp := one.DivRound(price, Precision)
	impOther := one.DivRound(otherPrice, Precision)
	sum := imp.Add(impOther)
	if sum.LessThanOrEqual(one) {
		return Multiplicative{}.Devig(price, otherPrice)
	}

	// sum of shin probabilities falls monotonically in z from sqrt(sum) at z=0 towards a value below one
	lo, hi := decimal.Zero, decimal.RequireFromString("0.99")
	for i := 0; i < shinIterations; i++ {
		mid := lo.Add(hi).Div(two)
		total := shinProbability(imp, sum, mid).Add(shinProbability(impOther, sum, mid))
		if total.GreaterThan(one) {
			lo = mid
		} else {
			hi = mid
		}
	}
	z := lo.Add(hi).Div(two)
	return finish(shinProbability(imp, sum, z))
}

// shinProbability is (sqrt(z^2 + 4(1-z) pi^2 / S) - z) / (2(1-z)).
func shinProbability(implied, sum, z decimal.Decimal) decimal.Decimal {
	oneMinusZ := one.Sub(z)
	radicand := z.Mul(z).Add(
		decimal.NewFromInt(4).Mul(oneMinusZ).Mul(implied).Mul(implied).DivRound(sum, Precision),
	)
	return sqrt(radicand).Sub(z).DivRound(two.Mul(oneMinusZ), Precision)
}

// sqrt seeds Newton's method from float64 and refines it with a fixed number of decimal steps,
// so equal inputs always give equal outputs.
func sqrt(v decimal.Decimal) decimal.Decimal {
	if !v.IsPositive() {
		return decimal.Zero
	}
	f, _ := v.Float64()
	x := decimal.NewFromFloat(math.Sqrt(f))
	for i := 0; i < 4; i++ {
		x = x.Add(v.DivRound(x, Precision+4)).Div(two).Round(Precision + 4)
	}
	return x.Round(Precision)
}

func validatePair(price, otherPrice decimal.Decimal) error {
	if err := ValidatePrice(price); err != nil {
		return err
	}
	return ValidatePrice(otherPrice)
}

// finish derives the other side as 1 - p so the pair sums to exactly one.
func finish(p decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := ValidateProbability(p); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return p, one.Sub(p), nil
}
