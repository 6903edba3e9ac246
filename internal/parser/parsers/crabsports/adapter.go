// Package crabsports is the cookie-authenticated target-book adapter for Crab Sports.
package crabsports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Vodeneev/sharpedge/internal/parser/parsers"
	"github.com/Vodeneev/sharpedge/internal/pkg/config"
	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/httpclient"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

const (
	Name            = "crabsports"
	defaultURL      = "https://ws.sportsbook.crabsports.com/component/data"
	defaultTimezone = "America/New_York"
	siteOrigin      = "https://sportsbook.crabsports.com"
	eventListKey    = "prematch_event_list"
)

// DefaultURLKeys maps leagues to the site's url_key fragment.
var DefaultURLKeys = map[enums.League]string{
	enums.NBA: "basketball/united-states/nba",
	enums.NHL: "hockey/united-states/nhl",
	enums.MLB: "baseball/united-states/mlb",
}

// localLayouts are the zone-less start formats the site sends; they are read in the configured timezone.
var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

var trailingLine = regexp.MustCompile(`([+-]?\d*\.?\d+)\)?$`)

func init() {
	parsers.Register(Name, func(cfg *config.Config) (parsers.Adapter, error) {
		return New(cfg)
	})
}

type Adapter struct {
	url      string
	timezone string
	loc      *time.Location
	urlKeys  map[enums.League]string
	client   *httpclient.Client
	now      func() time.Time
}

func New(cfg *config.Config) (*Adapter, error) {
	cc := cfg.Parser.CrabSports
	if cc.Cookie == "" {
		return nil, errors.New("crabsports: cookie is not set (parser.crabsports.cookie or CRABSPORTS_COOKIE)")
	}

	url := cc.URL
	if url == "" {
		url = defaultURL
	}
	tz := cc.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("crabsports: timezone %q: %w", tz, err)
	}

	keys := make(map[enums.League]string, len(DefaultURLKeys))
	for l, k := range DefaultURLKeys {
		keys[l] = k
	}
	for name, k := range cc.URLKeys {
		if l, ok := enums.ParseLeague(name); ok && k != "" {
			keys[l] = strings.Trim(k, "/")
		}
	}

	headers := map[string]string{
		"Cookie":  cc.Cookie,
		"Origin":  siteOrigin,
		"Referer": siteOrigin + "/",
	}
	for k, v := range cfg.Parser.Headers {
		headers[k] = v
	}

	return &Adapter{
		url:      url,
		timezone: tz,
		loc:      loc,
		urlKeys:  keys,
		client: httpclient.New(Name,
			httpclient.WithTimeout(cfg.Parser.Timeout),
			httpclient.WithUserAgent(cfg.Parser.UserAgent),
			httpclient.WithHeaders(headers),
			httpclient.WithRateLimit(cc.RequestsPerSecond, cc.Burst),
		),
		now: time.Now,
	}, nil
}

func (a *Adapter) Name() string { return Name }

// Fetch requests the prematch event list per league. Per-league failures follow the same
// rule as the other adapters: AUTH and RATE_LIMITED end the fetch, others skip the league.
func (a *Adapter) Fetch(ctx context.Context, scope parsers.Scope) ([]models.RawOddsObservation, error) {
	var (
		out      []models.RawOddsObservation
		firstErr error
		fetched  int
	)
	for _, league := range scope.Leagues {
		key, ok := a.urlKeys[league]
		if !ok {
			slog.Debug("crabsports: league not mapped", "league", league)
			continue
		}

		obs, err := a.fetchLeague(ctx, league, key)
		if err != nil {
			ff := models.AsFetchFailure(Name, err)
			if !ff.Kind.Retryable() {
				return nil, ff
			}
			slog.Warn("crabsports: league fetch failed", "league", league, "error", err)
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

func (a *Adapter) fetchLeague(ctx context.Context, league enums.League, urlKey string) ([]models.RawOddsObservation, error) {
	payload := requestPayload{
		Context: requestContext{
			URLKey:    "/en_us/" + urlKey,
			Version:   "1.0.1",
			Device:    "web_vuejs_desktop",
			Lang:      "en_us",
			Timezone:  a.timezone,
			URLParams: map[string]string{},
		},
		Components: []requestComponent{{TreeCompoKey: eventListKey, Params: map[string]any{}}},
	}

	var resp response
	if err := a.client.PostJSON(ctx, a.url, payload, &resp); err != nil {
		return nil, err
	}

	events, ok := resp.events()
	if !ok {
		return nil, models.NewFetchFailure(models.FailureMalformed, Name, "response has no "+eventListKey+" component", nil)
	}
	return buildObservations(league, events, a.loc, a.now().UTC()), nil
}

func (r response) events() ([]event, bool) {
	for _, c := range r.Components {
		if c.TreeCompoKey != eventListKey || c.Data == nil {
			continue
		}
		if len(c.Data.Competitions) == 0 {
			return c.Data.Events, true
		}
		var out []event
		for _, comp := range c.Data.Competitions {
			out = append(out, comp.Events...)
		}
		return out, true
	}
	return nil, false
}

func buildObservations(league enums.League, events []event, loc *time.Location, observedAt time.Time) []models.RawOddsObservation {
	var out []models.RawOddsObservation
	for _, ev := range events {
		var home, away string
		for _, actor := range ev.Actors {
			switch actor.Type {
			case "home":
				home = strings.TrimSpace(actor.Label)
			case "away":
				away = strings.TrimSpace(actor.Label)
			}
		}
		if home == "" || away == "" {
			slog.Debug("crabsports: event without both teams", "event", ev.ID)
			continue
		}

		for _, m := range ev.Markets {
			if len(m.Bets) == 0 || m.Bets[0].Label == "" {
				continue
			}
			b := m.Bets[0]
			for _, sel := range b.Selections {
				if sel.Label == "" || !sel.Odds.Valid {
					continue
				}
				side, ok := sideFromLabel(sel.Label, home, away)
				if !ok {
					slog.Debug("crabsports: unmapped selection", "event", ev.ID, "label", sel.Label)
					continue
				}
				obs := models.RawOddsObservation{
					Book:        Name,
					League:      league,
					HomeTeam:    home,
					AwayTeam:    away,
					StartTime:   startInUTC(ev.Start, loc),
					MarketLabel: b.Label,
					SideLabel:   side,
					Price:       sel.Odds.Decimal,
					ObservedAt:  observedAt,
				}
				if line := lineFromLabel(sel.Label); line != "" {
					obs.Line = models.StringPtr(line)
				}
				out = append(out, obs)
			}
		}
	}
	return out
}

// startInUTC renders a zone-less start as UTC, reading it in loc. Starts with an offset pass through.
func startInUTC(raw string, loc *time.Location) string {
	s := strings.TrimSpace(raw)
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}

// sideFromLabel reads the side from a selection label: "Over 220.5", "u", "Boston Celtics (-3.5)".
func sideFromLabel(label, home, away string) (string, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case l == "o" || strings.HasPrefix(l, "over"):
		return "over", true
	case l == "u" || strings.HasPrefix(l, "under"):
		return "under", true
	case strings.HasPrefix(l, strings.ToLower(home)):
		return "home", true
	case strings.HasPrefix(l, strings.ToLower(away)):
		return "away", true
	default:
		return "", false
	}
}

// lineFromLabel returns the trailing number of a label, or "" when there is none.
func lineFromLabel(label string) string {
	m := trailingLine.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return ""
	}
	return m[1]
}
