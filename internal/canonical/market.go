// Package canonical maps raw market labels, side labels and lines onto canonical markets.
package canonical

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/sharpedge/internal/pkg/alias"
	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
	"github.com/Vodeneev/sharpedge/internal/pkg/textnorm"
)

var (
	ErrUnknownMarketType = errors.New("unknown market type")
	ErrUnknownSide       = errors.New("unknown side")
	ErrUnknownPeriod     = errors.New("unknown period")
)

var sideAliases = map[string]enums.Side{
	"home":      enums.Home,
	"h":         enums.Home,
	"1":         enums.Home,
	"home team": enums.Home,
	"away":      enums.Away,
	"a":         enums.Away,
	"2":         enums.Away,
	"away team": enums.Away,
	"visitor":   enums.Away,
	"over":      enums.Over,
	"o":         enums.Over,
	"under":     enums.Under,
	"u":         enums.Under,
}

var periodAliases = map[string]enums.Period{
	"":           enums.FullGame,
	"0":          enums.FullGame,
	"game":       enums.FullGame,
	"full game":  enums.FullGame,
	"match":      enums.FullGame,
	"1":          enums.FirstHalf,
	"1h":         enums.FirstHalf,
	"1st half":   enums.FirstHalf,
	"first half": enums.FirstHalf,
}

// Reporter receives unknown market labels for alias curation.
type Reporter interface {
	Report(ev models.UnresolvedEvent)
}

// Market is the canonical market part of a market key.
type Market struct {
	Type   enums.MarketType
	Side   enums.Side
	Line   decimal.NullDecimal
	Period enums.Period
}

// Canonicalizer works against one alias snapshot. Unknown labels are reported once per instance.
type Canonicalizer struct {
	table    *alias.Table
	reporter Reporter
	now      func() time.Time

	mu       sync.Mutex
	reported map[string]bool
}

func New(table *alias.Table, reporter Reporter) *Canonicalizer {
	return &Canonicalizer{
		table:    table,
		reporter: reporter,
		now:      time.Now,
		reported: make(map[string]bool),
	}
}

// Canonicalize maps one observation's market fields.
func (c *Canonicalizer) Canonicalize(obs models.RawOddsObservation) (Market, error) {
	mt, ok := c.table.MarketType(obs.MarketLabel)
	if !ok {
		c.reportUnknown(obs)
		return Market{}, fmt.Errorf("%w: %s %q", ErrUnknownMarketType, obs.Book, obs.MarketLabel)
	}

	side, err := ParseSide(obs.SideLabel)
	if err != nil {
		return Market{}, err
	}
	if !side.ValidFor(mt) {
		return Market{}, fmt.Errorf("%w: %s is not a %s side", ErrUnknownSide, side, mt)
	}

	period, err := ParsePeriod(obs.Period)
	if err != nil {
		return Market{}, err
	}

	m := Market{Type: mt, Side: side, Period: period}
	if !mt.HasLine() {
		return m, nil
	}

	if obs.Line == nil {
		return Market{}, fmt.Errorf("%w: %s market without a line", ErrInvalidLine, mt)
	}
	line, err := NormalizeLine(*obs.Line)
	if err != nil {
		return Market{}, err
	}
	m.Line = decimal.NewNullDecimal(line)
	return m, nil
}

// Key combines the market with a resolved game.
func (m Market) Key(game models.CanonicalGameKey) models.CanonicalMarketKey {
	return models.CanonicalMarketKey{
		Game:   game,
		Type:   m.Type,
		Side:   m.Side,
		Line:   m.Line,
		Period: m.Period,
	}
}

// Oriented flips HOME and AWAY when the book lists the teams the other way round.
// The line stays with its team, so a spread line is kept as quoted.
func (m Market) Oriented(swapped bool) Market {
	if swapped && (m.Side == enums.Home || m.Side == enums.Away) {
		m.Side = m.Side.Opposite()
	}
	return m
}

// ParseSide maps a raw side label. Labels such as "Over 220.5" match by prefix.
func ParseSide(raw string) (enums.Side, error) {
	folded := textnorm.Fold(raw)
	if side, ok := sideAliases[folded]; ok {
		return side, nil
	}
	switch {
	case strings.HasPrefix(folded, "over "):
		return enums.Over, nil
	case strings.HasPrefix(folded, "under "):
		return enums.Under, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSide, raw)
}

// ParsePeriod maps a raw period label; empty means the full game.
func ParsePeriod(raw string) (enums.Period, error) {
	if p, ok := periodAliases[textnorm.Fold(raw)]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, raw)
}

func (c *Canonicalizer) reportUnknown(obs models.RawOddsObservation) {
	if c.reporter == nil {
		return
	}
	key := obs.Book + "\x00" + obs.MarketLabel

	c.mu.Lock()
	seen := c.reported[key]
	c.reported[key] = true
	c.mu.Unlock()

	if seen {
		return
	}
	c.reporter.Report(models.UnresolvedEvent{
		Book:    obs.Book,
		League:  string(obs.League),
		Kind:    models.UnresolvedKindMarket,
		Raw:     obs.MarketLabel,
		Outcome: models.OutcomeUnknownMarket,
		At:      c.now().UTC(),
	})
}
