package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/sharpedge/internal/calculator"
	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

func validObservation() models.RawOddsObservation {
	return models.RawOddsObservation{
		Book:        "crabsports",
		League:      enums.NBA,
		HomeTeam:    "Boston Celtics",
		AwayTeam:    "LA Lakers",
		StartTime:   "2026-03-14T23:30:00Z",
		MarketLabel: "Moneyline",
		SideLabel:   "home",
		Price:       decimal.RequireFromString("2.05"),
	}
}

func TestValidateObservation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *models.RawOddsObservation)
		wantErr error
	}{
		{"valid", func(o *models.RawOddsObservation) {}, nil},
		{"price of exactly one", func(o *models.RawOddsObservation) { o.Price = decimal.NewFromInt(1) }, calculator.ErrInvalidPrice},
		{"price below one", func(o *models.RawOddsObservation) { o.Price = decimal.RequireFromString("0.5") }, calculator.ErrInvalidPrice},
		{"zero price", func(o *models.RawOddsObservation) { o.Price = decimal.Zero }, calculator.ErrInvalidPrice},
		{"blank home team", func(o *models.RawOddsObservation) { o.HomeTeam = "  " }, ErrMissingField},
		{"no start time", func(o *models.RawOddsObservation) { o.StartTime = "" }, ErrMissingField},
		{"unknown league", func(o *models.RawOddsObservation) { o.League = "kbl" }, ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := validObservation()
			tt.mutate(&obs)
			err := ValidateObservation(obs)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
