package pinnacle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/sharpedge/internal/parser/parsers"
	"github.com/Vodeneev/sharpedge/internal/pkg/config"
	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

const matchupsJSON = `[
  {"id": 100, "startTime": "2026-03-14T23:30:00Z", "type": "matchup",
   "participants": [{"alignment": "home", "name": "Boston Celtics"}, {"alignment": "away", "name": "Los Angeles Lakers"}]},
  {"id": 101, "parentId": 100, "startTime": "2026-03-14T23:30:00Z", "type": "matchup",
   "participants": [{"alignment": "home", "name": "Boston Celtics (Corners)"}, {"alignment": "away", "name": "Los Angeles Lakers (Corners)"}]}
]`

const marketsJSON = `[
  {"matchupId": 100, "period": 0, "type": "moneyline", "status": "open",
   "prices": [{"designation": "home", "price": -110}, {"designation": "away", "price": 101}]},
  {"matchupId": 100, "period": 0, "type": "spread", "status": "open",
   "prices": [{"designation": "home", "points": -3.5, "price": -105}, {"designation": "away", "points": 3.5, "price": -105}]},
  {"matchupId": 100, "period": 0, "type": "spread", "status": "open", "isAlternate": true,
   "prices": [{"designation": "home", "points": -5.5, "price": 120}, {"designation": "away", "points": 5.5, "price": -140}]},
  {"matchupId": 100, "period": 1, "type": "total", "status": "open",
   "prices": [{"designation": "over", "points": 110.5, "price": -108}, {"designation": "under", "points": 110.5, "price": -112}]},
  {"matchupId": 100, "period": 0, "type": "total", "status": "closed",
   "prices": [{"designation": "over", "points": 220.5, "price": -108}, {"designation": "under", "points": 220.5, "price": -112}]},
  {"matchupId": 100, "period": 0, "type": "team_total", "status": "open",
   "prices": [{"designation": "over", "points": 112.5, "price": -110}]},
  {"matchupId": 101, "period": 0, "type": "moneyline", "status": "open",
   "prices": [{"designation": "home", "price": -110}, {"designation": "away", "price": -110}]}
]`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Parser.Pinnacle.BaseURL = srv.URL
	cfg.Parser.Pinnacle.APIKey = "test-key"
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestFetch(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/0.1/leagues/487/matchups":
			w.Write([]byte(matchupsJSON))
		case "/0.1/leagues/487/markets/straight":
			w.Write([]byte(marketsJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	obs, err := a.Fetch(context.Background(), parsers.Scope{Leagues: []enums.League{enums.NBA}})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// moneyline 2 + main spread 2 + first-half total 2
	if len(obs) != 6 {
		t.Fatalf("got %d observations, want 6: %+v", len(obs), obs)
	}

	first := obs[0]
	if first.Book != Name || first.League != enums.NBA || first.HomeTeam != "Boston Celtics" || first.AwayTeam != "Los Angeles Lakers" {
		t.Errorf("unexpected identity fields: %+v", first)
	}
	if first.MarketLabel != "moneyline" || first.SideLabel != "home" || first.Line != nil || first.Period != "0" {
		t.Errorf("unexpected market fields: %+v", first)
	}
	if !first.Price.Equal(decimal.RequireFromString("1.9090909090909091")) {
		t.Errorf("price = %s, want -110 as decimal", first.Price)
	}
	if !obs[1].Price.Equal(decimal.RequireFromString("2.01")) {
		t.Errorf("away price = %s, want 2.01", obs[1].Price)
	}
	if obs[2].LineValue() != "-3.5" || obs[3].LineValue() != "3.5" {
		t.Errorf("spread lines = %q, %q", obs[2].LineValue(), obs[3].LineValue())
	}
	if obs[4].Period != "1" || obs[4].SideLabel != "over" {
		t.Errorf("first-half total = %+v", obs[4])
	}
}

func TestFetch_MarketScope(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/0.1/leagues/487/matchups":
			w.Write([]byte(matchupsJSON))
		default:
			w.Write([]byte(marketsJSON))
		}
	})

	obs, err := a.Fetch(context.Background(), parsers.Scope{
		Leagues:     []enums.League{enums.NBA},
		MarketTypes: []enums.MarketType{enums.Moneyline},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2", len(obs))
	}
}

func TestFetch_AuthFailure(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := a.Fetch(context.Background(), parsers.Scope{Leagues: []enums.League{enums.NBA, enums.MLB}})
	var ff *models.FetchFailure
	if !errors.As(err, &ff) || ff.Kind != models.FailureAuth {
		t.Fatalf("error = %v, want AUTH failure", err)
	}
}

func TestFetch_PartialLeagueFailure(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/0.1/leagues/487/matchups":
			w.Write([]byte(matchupsJSON))
		case "/0.1/leagues/487/markets/straight":
			w.Write([]byte(marketsJSON))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})

	obs, err := a.Fetch(context.Background(), parsers.Scope{Leagues: []enums.League{enums.MLB, enums.NBA}})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) == 0 {
		t.Fatal("expected NBA observations despite MLB failure")
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := New(&config.Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
}
