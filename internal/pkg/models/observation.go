package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
)

// RawOddsObservation is one priced line item exactly as an adapter saw it.
// It is never mutated after the adapter returns it.
type RawOddsObservation struct {
	Book        string          `json:"book"`
	League      enums.League    `json:"league"`
	HomeTeam    string          `json:"home_team"`
	AwayTeam    string          `json:"away_team"`
	StartTime   string          `json:"start_time"`   // as published by the book
	MarketLabel string          `json:"market_label"` // "Point Spread", "moneyline", "Over/Under 9.5 runs"
	SideLabel   string          `json:"side_label"`   // "home", "over", "o"
	Line        *string         `json:"line,omitempty"`
	Period      string          `json:"period,omitempty"` // empty means full game
	Price       decimal.Decimal `json:"price"`            // decimal odds
	ObservedAt  time.Time       `json:"observed_at"`
}

// LineValue returns the raw line or "" when the quote has none.
func (o RawOddsObservation) LineValue() string {
	if o.Line == nil {
		return ""
	}
	return *o.Line
}

// StringPtr is a helper for adapters filling the nullable line.
func StringPtr(s string) *string {
	return &s
}
