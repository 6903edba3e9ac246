package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
)

// CanonicalGameKey identifies one real-world game across books.
// Start is already bucketed; two books rounding kickoff differently still share a key.
type CanonicalGameKey struct {
	League     enums.League `json:"league"`
	HomeTeamID string       `json:"home_team_id"`
	AwayTeamID string       `json:"away_team_id"`
	Start      time.Time    `json:"start"`
}

// String builds a stable cross-bookmaker game identifier.
// Format: league|home|away|time
func (k CanonicalGameKey) String() string {
	return normalizeKeyPart(string(k.League)) + "|" + CanonicalMatchID(k.HomeTeamID, k.AwayTeamID, k.Start)
}

// CanonicalMatchID joins the team part and the start part of a game key.
func CanonicalMatchID(homeTeam, awayTeam string, startTime time.Time) string {
	home := normalizeKeyPart(homeTeam)
	away := normalizeKeyPart(awayTeam)

	ts := "unknown-time"
	if !startTime.IsZero() {
		ts = startTime.UTC().Format(time.RFC3339)
	}

	return home + "|" + away + "|" + ts
}

func normalizeKeyPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "/", " ")
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "|", " ")
	s = strings.Join(strings.Fields(s), " ")
	return s
}

// CanonicalMarketKey is one priced side of one market of one game.
// Line is only valid for spread and total markets. A decimal compares by pointer under ==,
// so use String to group or look up keys.
type CanonicalMarketKey struct {
	Game   CanonicalGameKey    `json:"game"`
	Type   enums.MarketType    `json:"market_type"`
	Side   enums.Side          `json:"side"`
	Line   decimal.NullDecimal `json:"line"`
	Period enums.Period        `json:"period"`
}

// String format: game|type|period|side|line (line empty for moneyline).
func (k CanonicalMarketKey) String() string {
	line := ""
	if k.Line.Valid {
		line = k.Line.Decimal.String()
	}
	return k.Game.String() + "|" + string(k.Type) + "|" + string(k.Period) + "|" + string(k.Side) + "|" + line
}

// Opposite returns the key of the other side of the same two-way market.
// A spread line belongs to its team, so the other side carries the negated line.
func (k CanonicalMarketKey) Opposite() CanonicalMarketKey {
	o := k
	o.Side = k.Side.Opposite()
	if k.Type == enums.Spread && k.Line.Valid {
		o.Line = decimal.NewNullDecimal(k.Line.Decimal.Neg())
	}
	return o
}
