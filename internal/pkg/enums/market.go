package enums

import "strings"

type MarketType string

const (
	Moneyline MarketType = "MONEYLINE"
	Spread    MarketType = "SPREAD"
	Total     MarketType = "TOTAL"
)

func (m MarketType) IsValid() bool {
	switch m {
	case Moneyline, Spread, Total:
		return true
	default:
		return false
	}
}

// HasLine reports whether quotes of this market carry a line value.
func (m MarketType) HasLine() bool {
	return m == Spread || m == Total
}

func (m MarketType) String() string {
	return string(m)
}

// ParseMarketType accepts the canonical names only; raw bookmaker labels go through the alias table.
func ParseMarketType(s string) (MarketType, bool) {
	m := MarketType(strings.ToUpper(strings.TrimSpace(s)))
	return m, m.IsValid()
}

type Side string

const (
	Home  Side = "HOME"
	Away  Side = "AWAY"
	Over  Side = "OVER"
	Under Side = "UNDER"
)

// Opposite returns the other side of a two-way market.
func (s Side) Opposite() Side {
	switch s {
	case Home:
		return Away
	case Away:
		return Home
	case Over:
		return Under
	case Under:
		return Over
	default:
		return s
	}
}

// ValidFor reports whether the side belongs to the market type.
func (s Side) ValidFor(m MarketType) bool {
	switch m {
	case Moneyline, Spread:
		return s == Home || s == Away
	case Total:
		return s == Over || s == Under
	default:
		return false
	}
}

func (s Side) String() string {
	return string(s)
}

type Period string

const (
	FullGame  Period = "FULL_GAME"
	FirstHalf Period = "FIRST_HALF"
)

func (p Period) String() string {
	return string(p)
}
