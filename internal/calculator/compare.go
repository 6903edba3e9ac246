package calculator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

// Quote is one book's price for one side of a canonical market.
type Quote struct {
	Book       string
	Price      decimal.Decimal
	ObservedAt time.Time
}

// Pair is what Compare needs for one (market, target book) row: the target quote and
// the sharp book's quotes for the same side and the opposite side.
type Pair struct {
	Market     models.CanonicalMarketKey
	Target     Quote
	Sharp      Quote
	SharpOther Quote
}

type Calculator struct {
	devigger Devigger
	kellyCap decimal.Decimal
	now      func() time.Time
}

// New builds a calculator. A zero cap disables the stake limit.
func New(method string, kellyCap float64) (*Calculator, error) {
	d, err := NewDevigger(method)
	if err != nil {
		return nil, err
	}
	limit := decimal.NewFromFloat(kellyCap)
	if !limit.IsPositive() {
		limit = one
	}
	return &Calculator{devigger: d, kellyCap: limit, now: time.Now}, nil
}

func (c *Calculator) Method() string {
	return c.devigger.Method()
}

// Compare produces one comparison row. EV and Kelly are kept whatever their sign.
func (c *Calculator) Compare(cycleID string, pair Pair) (models.OddsComparison, error) {
	p, pOther, err := c.devigger.Devig(pair.Sharp.Price, pair.SharpOther.Price)
	if err != nil {
		return models.OddsComparison{}, fmt.Errorf("devig %s: %w", pair.Market, err)
	}
	ev, err := ExpectedValue(p, pair.Target.Price)
	if err != nil {
		return models.OddsComparison{}, fmt.Errorf("expected value %s: %w", pair.Market, err)
	}
	kelly, err := Kelly(p, pair.Target.Price)
	if err != nil {
		return models.OddsComparison{}, fmt.Errorf("kelly %s: %w", pair.Market, err)
	}
	american, err := DecimalToAmerican(pair.Target.Price)
	if err != nil {
		return models.OddsComparison{}, err
	}

	return models.OddsComparison{
		ID:                   uuid.NewString(),
		CycleID:              cycleID,
		GameKey:              pair.Market.Game,
		MarketKey:            pair.Market,
		TargetBook:           pair.Target.Book,
		SharpBook:            pair.Sharp.Book,
		TargetPrice:          pair.Target.Price,
		TargetPriceAmerican:  american,
		SharpPrice:           pair.Sharp.Price,
		SharpPriceOther:      pair.SharpOther.Price,
		FairProbability:      p,
		FairProbabilityOther: pOther,
		VigMethod:            c.devigger.Method(),
		ExpectedValue:        ev,
		KellyFraction:        kelly,
		RecommendedStake:     RecommendedStake(kelly, c.kellyCap),
		TargetObservedAt:     pair.Target.ObservedAt,
		SharpObservedAt:      pair.Sharp.ObservedAt,
		CollectedAt:          c.now().UTC(),
	}, nil
}
