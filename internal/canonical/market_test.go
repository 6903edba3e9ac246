package canonical

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/sharpedge/internal/pkg/alias"
	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

type recorder struct {
	events []models.UnresolvedEvent
}

func (r *recorder) Report(ev models.UnresolvedEvent) {
	r.events = append(r.events, ev)
}

func newTestCanonicalizer(t *testing.T) (*Canonicalizer, *recorder) {
	t.Helper()
	table, err := alias.NewTable(alias.File{
		Markets: map[string]enums.MarketType{
			"moneyline":    enums.Moneyline,
			"point spread": enums.Spread,
			"total points": enums.Total,
		},
		MarketKeywords: []alias.KeywordRule{
			{Contains: "run line", Type: enums.Spread},
			{Contains: "over/under", Type: enums.Total},
		},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	rec := &recorder{}
	return New(table, rec), rec
}

func TestCanonicalize(t *testing.T) {
	c, _ := newTestCanonicalizer(t)

	tests := []struct {
		name     string
		obs      models.RawOddsObservation
		wantType enums.MarketType
		wantSide enums.Side
		wantLine string
		wantErr  error
	}{
		{
			name:     "moneyline ignores line",
			obs:      models.RawOddsObservation{MarketLabel: "Moneyline", SideLabel: "home", Line: models.StringPtr("1")},
			wantType: enums.Moneyline,
			wantSide: enums.Home,
		},
		{
			name:     "spread line quantized",
			obs:      models.RawOddsObservation{MarketLabel: "Point Spread", SideLabel: "a", Line: models.StringPtr("-3.0")},
			wantType: enums.Spread,
			wantSide: enums.Away,
			wantLine: "-3",
		},
		{
			name:     "total by keyword with prefixed side",
			obs:      models.RawOddsObservation{MarketLabel: "Over/Under 9.5 runs", SideLabel: "Over 9.5", Line: models.StringPtr("9.5")},
			wantType: enums.Total,
			wantSide: enums.Over,
			wantLine: "9.5",
		},
		{
			name:    "unknown market",
			obs:     models.RawOddsObservation{MarketLabel: "Player Props", SideLabel: "home"},
			wantErr: ErrUnknownMarketType,
		},
		{
			name:    "over on a moneyline",
			obs:     models.RawOddsObservation{MarketLabel: "moneyline", SideLabel: "o"},
			wantErr: ErrUnknownSide,
		},
		{
			name:    "spread without line",
			obs:     models.RawOddsObservation{MarketLabel: "point spread", SideLabel: "home"},
			wantErr: ErrInvalidLine,
		},
		{
			name:    "unknown period",
			obs:     models.RawOddsObservation{MarketLabel: "moneyline", SideLabel: "home", Period: "third quarter"},
			wantErr: ErrUnknownPeriod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Canonicalize(tt.obs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Type != tt.wantType || got.Side != tt.wantSide {
				t.Errorf("got %s/%s, want %s/%s", got.Type, got.Side, tt.wantType, tt.wantSide)
			}
			if got.Period != enums.FullGame {
				t.Errorf("period = %s, want FULL_GAME", got.Period)
			}
			if tt.wantLine == "" {
				if got.Line.Valid {
					t.Errorf("line = %s, want none", got.Line.Decimal)
				}
				return
			}
			if !got.Line.Valid || !got.Line.Decimal.Equal(decimal.RequireFromString(tt.wantLine)) {
				t.Errorf("line = %v, want %s", got.Line, tt.wantLine)
			}
		})
	}
}

func TestCanonicalize_ReportsUnknownMarketOnce(t *testing.T) {
	c, rec := newTestCanonicalizer(t)
	obs := models.RawOddsObservation{Book: "crabsports", League: enums.NBA, MarketLabel: "Race to 20", SideLabel: "home"}

	for i := 0; i < 3; i++ {
		if _, err := c.Canonicalize(obs); !errors.Is(err, ErrUnknownMarketType) {
			t.Fatalf("error = %v", err)
		}
	}
	if len(rec.events) != 1 {
		t.Fatalf("reported %d events, want 1", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Kind != models.UnresolvedKindMarket || ev.Outcome != models.OutcomeUnknownMarket || ev.Raw != "Race to 20" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestMarket_Oriented(t *testing.T) {
	line := decimal.NewNullDecimal(decimal.RequireFromString("-3.5"))
	m := Market{Type: enums.Spread, Side: enums.Home, Line: line, Period: enums.FullGame}

	flipped := m.Oriented(true)
	if flipped.Side != enums.Away || !flipped.Line.Decimal.Equal(line.Decimal) {
		t.Errorf("Oriented(true) = %+v", flipped)
	}
	if m.Oriented(false).Side != enums.Home {
		t.Error("Oriented(false) changed the side")
	}

	total := Market{Type: enums.Total, Side: enums.Over}
	if total.Oriented(true).Side != enums.Over {
		t.Error("totals must not flip")
	}
}
