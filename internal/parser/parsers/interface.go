// Package parsers defines the bookmaker adapter contract and the name -> factory registry.
package parsers

import (
	"context"

	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

// Scope limits what an adapter fetches in one call.
type Scope struct {
	Leagues     []enums.League
	MarketTypes []enums.MarketType
}

// WantsMarket reports whether mt is in scope. An empty list means all markets.
func (s Scope) WantsMarket(mt enums.MarketType) bool {
	if len(s.MarketTypes) == 0 {
		return true
	}
	for _, m := range s.MarketTypes {
		if m == mt {
			return true
		}
	}
	return false
}

// Adapter fetches one book's current odds. Failures are returned as *models.FetchFailure;
// adapters never retry, the orchestrator owns that.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, scope Scope) ([]models.RawOddsObservation, error)
}
