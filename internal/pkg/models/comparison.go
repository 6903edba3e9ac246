package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OddsComparison is one target-book quote priced against the sharp book.
// Rows are append-only: every cycle produces new ones, EV and Kelly are kept whatever their sign.
type OddsComparison struct {
	ID                   string             `json:"id"`
	CycleID              string             `json:"cycle_id"`
	GameKey              CanonicalGameKey   `json:"game_key"`
	MarketKey            CanonicalMarketKey `json:"market_key"`
	TargetBook           string             `json:"target_book"`
	SharpBook            string             `json:"sharp_book"`
	TargetPrice          decimal.Decimal    `json:"target_price"`
	TargetPriceAmerican  decimal.Decimal    `json:"target_price_american"`
	SharpPrice           decimal.Decimal    `json:"sharp_price"`
	SharpPriceOther      decimal.Decimal    `json:"sharp_price_other_side"`
	FairProbability      decimal.Decimal    `json:"fair_probability"`
	FairProbabilityOther decimal.Decimal    `json:"fair_probability_other_side"`
	VigMethod            string             `json:"vig_method"`
	ExpectedValue        decimal.Decimal    `json:"expected_value"` // fraction, 0.0456 == 4.56%
	KellyFraction        decimal.Decimal    `json:"kelly_fraction"`
	RecommendedStake     decimal.Decimal    `json:"recommended_stake"`
	TargetObservedAt     time.Time          `json:"target_observed_at"`
	SharpObservedAt      time.Time          `json:"sharp_observed_at"`
	CollectedAt          time.Time          `json:"collected_at"`
}
