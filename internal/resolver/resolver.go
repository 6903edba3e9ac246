// Package resolver turns raw bookmaker team strings and kickoff times into canonical game keys.
package resolver

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Vodeneev/sharpedge/internal/pkg/alias"
	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
	"github.com/Vodeneev/sharpedge/internal/pkg/textnorm"
)

var ErrUnresolvedTeam = errors.New("unresolved team")

// Method records which lookup step produced a team id.
type Method string

const (
	MethodExact      Method = "exact"
	MethodNormalized Method = "normalized"
	MethodFuzzy      Method = "fuzzy"
)

// Reporter receives fuzzy acceptances and failures for alias curation.
type Reporter interface {
	Report(ev models.UnresolvedEvent)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(models.UnresolvedEvent)

func (f ReporterFunc) Report(ev models.UnresolvedEvent) { f(ev) }

type Options struct {
	Threshold float64 // minimum similarity for a fuzzy match
	Margin    float64 // best must beat second best by more than this
}

// TeamResolution is the outcome of one successful lookup.
type TeamResolution struct {
	TeamID string
	Method Method
	Score  float64
}

type cacheKey struct {
	book   string
	league enums.League
	raw    string
}

type cached struct {
	res TeamResolution
	err error
}

// Resolver resolves team names against one alias table snapshot.
// Build one per cycle; results are memoized so each distinct raw string is reported once.
type Resolver struct {
	table    *alias.Table
	opts     Options
	reporter Reporter
	now      func() time.Time

	mu    sync.Mutex
	cache map[cacheKey]cached
}

func New(table *alias.Table, opts Options, reporter Reporter) *Resolver {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.90
	}
	return &Resolver{
		table:    table,
		opts:     opts,
		reporter: reporter,
		now:      time.Now,
		cache:    make(map[cacheKey]cached),
	}
}

// ResolveTeam tries the exact alias, then the folded alias, then a fuzzy match over the league's canonical names.
func (r *Resolver) ResolveTeam(book string, league enums.League, raw string) (TeamResolution, error) {
	key := cacheKey{book: book, league: league, raw: raw}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.cache[key]; ok {
		return c.res, c.err
	}
	res, err := r.resolve(book, league, raw)
	r.cache[key] = cached{res: res, err: err}
	return res, err
}

func (r *Resolver) resolve(book string, league enums.League, raw string) (TeamResolution, error) {
	if strings.TrimSpace(raw) == "" {
		return TeamResolution{}, fmt.Errorf("%w: empty name from %s", ErrUnresolvedTeam, book)
	}

	if id, ok := r.table.TeamAlias(book, raw); ok {
		if team, ok := r.table.Team(id); ok && team.League == league {
			return TeamResolution{TeamID: id, Method: MethodExact, Score: 1}, nil
		}
	}

	folded := textnorm.Fold(raw)
	if id, ok := r.table.FoldedTeamAlias(book, league, folded); ok {
		return TeamResolution{TeamID: id, Method: MethodNormalized, Score: 1}, nil
	}

	best, second := -1.0, -1.0
	var bestTeam alias.Team
	for _, team := range r.table.TeamsInLeague(league) {
		score := Similarity(folded, textnorm.Fold(team.Name))
		switch {
		case score > best:
			second = best
			best = score
			bestTeam = team
		case score > second:
			second = score
		}
	}
	if second < 0 {
		second = 0
	}

	if best >= r.opts.Threshold && best-second > r.opts.Margin {
		r.report(models.UnresolvedEvent{
			Book:      book,
			League:    string(league),
			Kind:      models.UnresolvedKindTeam,
			Raw:       raw,
			Outcome:   models.OutcomeFuzzyAccepted,
			Candidate: bestTeam.ID,
			Score:     best,
		})
		return TeamResolution{TeamID: bestTeam.ID, Method: MethodFuzzy, Score: best}, nil
	}

	ev := models.UnresolvedEvent{
		Book:    book,
		League:  string(league),
		Kind:    models.UnresolvedKindTeam,
		Raw:     raw,
		Outcome: models.OutcomeUnresolved,
	}
	if best >= 0 {
		ev.Candidate = bestTeam.ID
		ev.Score = best
	}
	r.report(ev)

	if best < 0 {
		return TeamResolution{}, fmt.Errorf("%w: %s/%s %q (no teams in league)", ErrUnresolvedTeam, book, league, raw)
	}
	return TeamResolution{}, fmt.Errorf("%w: %s/%s %q (best %s %.3f, second %.3f)", ErrUnresolvedTeam, book, league, raw, bestTeam.ID, best, second)
}

func (r *Resolver) report(ev models.UnresolvedEvent) {
	if r.reporter == nil {
		return
	}
	ev.At = r.now().UTC()
	r.reporter.Report(ev)
}
