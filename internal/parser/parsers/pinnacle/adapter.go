// Package pinnacle is the sharp-book adapter for the Pinnacle Arcadia guest API.
package pinnacle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/sharpedge/internal/calculator"
	"github.com/Vodeneev/sharpedge/internal/parser/parsers"
	"github.com/Vodeneev/sharpedge/internal/pkg/config"
	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/httpclient"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

const (
	Name           = "pinnacle"
	defaultBaseURL = "https://guest.api.arcadia.pinnacle.com"
)

// DefaultLeagueIDs maps leagues to Arcadia league ids.
var DefaultLeagueIDs = map[enums.League]int64{
	enums.NBA:   487,
	enums.MLB:   246,
	enums.NHL:   1456,
	enums.NFL:   889,
	enums.NCAAF: 880,
	enums.WNBA:  578,
	enums.MLS:   2663,
}

func init() {
	parsers.Register(Name, func(cfg *config.Config) (parsers.Adapter, error) {
		return New(cfg)
	})
}

type Adapter struct {
	baseURL   string
	leagueIDs map[enums.League]int64
	client    *httpclient.Client
	now       func() time.Time
}

// New requires an API key; it is sent as X-API-Key on every request.
func New(cfg *config.Config) (*Adapter, error) {
	pc := cfg.Parser.Pinnacle
	if pc.APIKey == "" {
		return nil, errors.New("pinnacle: api key is not set (parser.pinnacle.api_key or PINNACLE_API_KEY)")
	}

	baseURL := strings.TrimRight(pc.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	ids := make(map[enums.League]int64, len(DefaultLeagueIDs))
	for l, id := range DefaultLeagueIDs {
		ids[l] = id
	}
	for name, id := range pc.LeagueIDs {
		if l, ok := enums.ParseLeague(name); ok && id > 0 {
			ids[l] = id
		}
	}

	headers := map[string]string{"X-API-Key": pc.APIKey, "Referer": "https://www.pinnacle.com/"}
	for k, v := range cfg.Parser.Headers {
		headers[k] = v
	}

	return &Adapter{
		baseURL:   baseURL,
		leagueIDs: ids,
		client: httpclient.New(Name,
			httpclient.WithTimeout(cfg.Parser.Timeout),
			httpclient.WithUserAgent(cfg.Parser.UserAgent),
			httpclient.WithHeaders(headers),
			httpclient.WithRateLimit(pc.RequestsPerSecond, pc.Burst),
		),
		now: time.Now,
	}, nil
}

func (a *Adapter) Name() string { return Name }

// Fetch pulls matchups and straight markets per league. A league that fails is skipped
// unless every league fails or the failure is AUTH/RATE_LIMITED, which apply to the whole book.
func (a *Adapter) Fetch(ctx context.Context, scope parsers.Scope) ([]models.RawOddsObservation, error) {
	var (
		out      []models.RawOddsObservation
		firstErr error
		fetched  int
	)
	for _, league := range scope.Leagues {
		id, ok := a.leagueIDs[league]
		if !ok {
			slog.Debug("pinnacle: league not mapped", "league", league)
			continue
		}

		obs, err := a.fetchLeague(ctx, league, id, scope)
		if err != nil {
			ff := models.AsFetchFailure(Name, err)
			if !ff.Kind.Retryable() {
				return nil, ff
			}
			slog.Warn("pinnacle: league fetch failed", "league", league, "error", err)
			if firstErr == nil {
				firstErr = ff
			}
			continue
		}
		fetched++
		out = append(out, obs...)
	}

	if fetched == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (a *Adapter) fetchLeague(ctx context.Context, league enums.League, id int64, scope parsers.Scope) ([]models.RawOddsObservation, error) {
	var matchups []Matchup
	if err := a.client.GetJSON(ctx, fmt.Sprintf("%s/0.1/leagues/%d/matchups", a.baseURL, id), &matchups); err != nil {
		return nil, err
	}
	var markets []Market
	if err := a.client.GetJSON(ctx, fmt.Sprintf("%s/0.1/leagues/%d/markets/straight", a.baseURL, id), &markets); err != nil {
		return nil, err
	}
	return buildObservations(league, matchups, markets, scope, a.now().UTC()), nil
}

type game struct {
	home, away, start string
}

func buildObservations(league enums.League, matchups []Matchup, markets []Market, scope parsers.Scope, observedAt time.Time) []models.RawOddsObservation {
	games := make(map[int64]game, len(matchups))
	for _, mu := range matchups {
		if mu.ParentID != nil || mu.IsLive || (mu.Type != "" && mu.Type != "matchup") {
			continue
		}
		var g game
		for _, p := range mu.Participants {
			switch p.Alignment {
			case "home":
				g.home = p.Name
			case "away":
				g.away = p.Name
			}
		}
		if g.home == "" || g.away == "" {
			continue
		}
		g.start = mu.StartTime
		games[mu.ID] = g
	}

	var out []models.RawOddsObservation
	for _, m := range markets {
		if m.IsAlternate || m.Status != "open" || m.Period > 1 {
			continue
		}
		mt, ok := marketType(m.Type)
		if !ok || !scope.WantsMarket(mt) {
			continue
		}
		g, ok := games[m.MatchupID]
		if !ok {
			continue
		}

		for _, p := range m.Prices {
			if p.Designation == "draw" {
				continue
			}
			price, err := calculator.AmericanToDecimal(decimal.NewFromInt(int64(p.Price)))
			if err != nil {
				slog.Debug("pinnacle: skipping price", "matchup", m.MatchupID, "price", p.Price, "error", err)
				continue
			}
			obs := models.RawOddsObservation{
				Book:        Name,
				League:      league,
				HomeTeam:    g.home,
				AwayTeam:    g.away,
				StartTime:   g.start,
				MarketLabel: m.Type,
				SideLabel:   p.Designation,
				Period:      strconv.Itoa(m.Period),
				Price:       price,
				ObservedAt:  observedAt,
			}
			if p.Points != nil {
				obs.Line = models.StringPtr(strconv.FormatFloat(*p.Points, 'f', -1, 64))
			}
			out = append(out, obs)
		}
	}
	return out
}

func marketType(t string) (enums.MarketType, bool) {
	switch t {
	case "moneyline":
		return enums.Moneyline, true
	case "spread":
		return enums.Spread, true
	case "total":
		return enums.Total, true
	default:
		return "", false
	}
}
