package pipeline

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Vodeneev/sharpedge/internal/calculator"
	"github.com/Vodeneev/sharpedge/internal/canonical"
	"github.com/Vodeneev/sharpedge/internal/orchestrator"
	"github.com/Vodeneev/sharpedge/internal/pkg/alias"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
	"github.com/Vodeneev/sharpedge/internal/pkg/validation"
	"github.com/Vodeneev/sharpedge/internal/resolver"
)

// marketQuotes holds every book's quote for one canonical market, keyed by lower-cased book name.
type marketQuotes struct {
	key    models.CanonicalMarketKey
	byBook map[string]calculator.Quote
}

// quoteBook indexes markets by CanonicalMarketKey.String. The key struct itself is not usable
// as a map key: its decimal line compares by pointer.
type quoteBook map[string]*marketQuotes

func (qb quoteBook) add(key models.CanonicalMarketKey) *marketQuotes {
	id := key.String()
	m := qb[id]
	if m == nil {
		m = &marketQuotes{key: key, byBook: make(map[string]calculator.Quote)}
		qb[id] = m
	}
	return m
}

func (qb quoteBook) lookup(key models.CanonicalMarketKey, book string) (calculator.Quote, bool) {
	m := qb[key.String()]
	if m == nil {
		return calculator.Quote{}, false
	}
	q, ok := m.byBook[book]
	return q, ok
}

func bookID(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// collector gathers curation events from the resolver and the canonicalizer.
type collector struct {
	mu     sync.Mutex
	events []models.UnresolvedEvent
}

func (c *collector) Report(ev models.UnresolvedEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) drain(cycleID string) []models.UnresolvedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	for i := range out {
		out[i].CycleID = cycleID
	}
	return out
}

// orderSuccesses puts the sharp book first so its home/away orientation fixes each game key.
func orderSuccesses(successes []orchestrator.Success, sharp string) []orchestrator.Success {
	out := append([]orchestrator.Success(nil), successes...)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := bookID(out[i].Book) == sharp, bookID(out[j].Book) == sharp
		if si != sj {
			return si
		}
		return out[i].Book < out[j].Book
	})
	return out
}

// resolve turns every successful book's observations into quotes keyed by canonical market.
func (c *Coordinator) resolve(report *CycleReport, table *alias.Table, successes []orchestrator.Success, events *collector) quoteBook {
	teams := resolver.New(table, c.opts.Resolver, events)
	markets := canonical.New(table, events)
	games := resolver.NewGameIndex(c.opts.Bucket, c.opts.GameTolerance)

	quotes := make(quoteBook)
	for _, s := range orderSuccesses(successes, c.opts.SharpBook) {
		for _, obs := range s.Observations {
			report.Observations++
			key, ok := c.resolveOne(report, teams, markets, games, obs)
			if !ok {
				continue
			}

			q := calculator.Quote{Book: obs.Book, Price: obs.Price, ObservedAt: obs.ObservedAt}
			book := bookID(obs.Book)
			byBook := quotes.add(key).byBook
			if prev, dup := byBook[book]; dup {
				report.drop(DropDuplicateQuote)
				if !q.ObservedAt.After(prev.ObservedAt) {
					continue
				}
			} else {
				report.Resolved++
			}
			byBook[book] = q
		}
	}
	report.Games = games.Len()
	return quotes
}

func (c *Coordinator) resolveOne(report *CycleReport, teams *resolver.Resolver, markets *canonical.Canonicalizer, games *resolver.GameIndex, obs models.RawOddsObservation) (models.CanonicalMarketKey, bool) {
	fail := func(reason string, err error) (models.CanonicalMarketKey, bool) {
		report.drop(reason)
		slog.Debug("Observation dropped", "cycle_id", report.ID, "book", obs.Book, "reason", reason, "error", err)
		return models.CanonicalMarketKey{}, false
	}

	if err := validation.ValidateObservation(obs); err != nil {
		if errors.Is(err, calculator.ErrInvalidPrice) {
			return fail(DropInvalidPrice, err)
		}
		return fail(DropInvalidObservation, err)
	}

	home, err := teams.ResolveTeam(obs.Book, obs.League, obs.HomeTeam)
	if err != nil {
		return fail(DropUnresolvedTeam, err)
	}
	away, err := teams.ResolveTeam(obs.Book, obs.League, obs.AwayTeam)
	if err != nil {
		return fail(DropUnresolvedTeam, err)
	}

	start, err := resolver.ParseStartTime(obs.StartTime)
	if err != nil {
		return fail(DropInvalidStartTime, err)
	}
	game, swapped, err := games.Resolve(obs.League, home.TeamID, away.TeamID, start)
	if err != nil {
		return fail(DropSameTeam, err)
	}

	m, err := markets.Canonicalize(obs)
	if err != nil {
		return fail(marketDropReason(err), err)
	}
	return m.Oriented(swapped).Key(game), true
}

func marketDropReason(err error) string {
	switch {
	case errors.Is(err, canonical.ErrUnknownMarketType):
		return DropUnknownMarketType
	case errors.Is(err, canonical.ErrInvalidLine):
		return DropInvalidLine
	case errors.Is(err, canonical.ErrUnknownSide):
		return DropUnknownSide
	case errors.Is(err, canonical.ErrUnknownPeriod):
		return DropUnknownPeriod
	default:
		return DropInvalidObservation
	}
}

// compare runs the calculator for every target quote that has both sharp sides.
func (c *Coordinator) compare(report *CycleReport, quotes quoteBook) []models.OddsComparison {
	ids := make([]string, 0, len(quotes))
	for id := range quotes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var rows []models.OddsComparison
	for _, id := range ids {
		key, byBook := quotes[id].key, quotes[id].byBook
		targets := c.targetBooks(byBook)
		if len(targets) == 0 {
			continue
		}

		sharp, ok := byBook[c.opts.SharpBook]
		if !ok {
			for range targets {
				report.drop(DropMissingSharp)
			}
			continue
		}
		sharpOther, ok := quotes.lookup(key.Opposite(), c.opts.SharpBook)
		if !ok {
			for range targets {
				report.drop(DropMissingSharpOther)
			}
			continue
		}

		for _, book := range targets {
			row, err := c.calc.Compare(report.ID, calculator.Pair{
				Market:     key,
				Target:     byBook[book],
				Sharp:      sharp,
				SharpOther: sharpOther,
			})
			if err != nil {
				report.drop(DropCalculation)
				slog.Warn("Comparison failed", "cycle_id", report.ID, "book", book, "market", id, "error", err)
				continue
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func (c *Coordinator) targetBooks(byBook map[string]calculator.Quote) []string {
	var out []string
	for book := range byBook {
		if book == c.opts.SharpBook {
			continue
		}
		if len(c.targets) > 0 && !c.targets[book] {
			continue
		}
		out = append(out, book)
	}
	sort.Strings(out)
	return out
}
