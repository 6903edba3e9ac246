// Package validation checks raw observations before they reach resolution.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Vodeneev/sharpedge/internal/calculator"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

var ErrMissingField = errors.New("missing field")

// ValidateObservation rejects observations that cannot be resolved. A price at or below 1
// wraps calculator.ErrInvalidPrice; it is reported, never clamped.
func ValidateObservation(obs models.RawOddsObservation) error {
	required := []struct {
		name, value string
	}{
		{"book", obs.Book},
		{"home team", obs.HomeTeam},
		{"away team", obs.AwayTeam},
		{"start time", obs.StartTime},
		{"market label", obs.MarketLabel},
		{"side label", obs.SideLabel},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}

	if !obs.League.IsValid() {
		return fmt.Errorf("%w: league %q", ErrMissingField, obs.League)
	}

	if err := calculator.ValidatePrice(obs.Price); err != nil {
		return fmt.Errorf("%s %s %s: %w", obs.Book, obs.MarketLabel, obs.SideLabel, err)
	}
	return nil
}
