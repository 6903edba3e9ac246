// Package alias holds the reference data that maps raw bookmaker strings to canonical ids.
// A Table is immutable once built; Store swaps whole tables between cycles.
package alias

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/textnorm"
)

// Team is a canonical team. Aliases apply to every book.
type Team struct {
	ID      string       `yaml:"id" json:"id"`
	League  enums.League `yaml:"league" json:"league"`
	Name    string       `yaml:"name" json:"name"`
	Aliases []string     `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// KeywordRule maps any label containing Contains to Type. Rules are tried in order after exact labels.
type KeywordRule struct {
	Contains string           `yaml:"contains"`
	Type     enums.MarketType `yaml:"type"`
}

// File is the on-disk shape of the alias table.
type File struct {
	Teams           []Team                       `yaml:"teams"`
	BookTeamAliases map[string]map[string]string `yaml:"book_team_aliases"` // book -> raw -> team id
	Markets         map[string]enums.MarketType  `yaml:"markets"`           // label -> market type
	MarketKeywords  []KeywordRule                `yaml:"market_keywords"`
}

// Overlay carries curated additions merged on top of a File.
type Overlay struct {
	TeamAliases map[string]map[string]string
	Markets     map[string]enums.MarketType
}

type Table struct {
	version uint64

	teams    map[string]Team
	byLeague map[enums.League][]Team

	exact      map[string]map[string]string // book -> raw -> id
	bookFolded map[string]map[string]string // book -> folded raw -> id
	leagueName map[enums.League]map[string]string

	markets  map[string]enums.MarketType // folded label
	keywords []KeywordRule
}

// NewTable validates f and indexes it.
func NewTable(f File) (*Table, error) {
	t := &Table{
		teams:      make(map[string]Team, len(f.Teams)),
		byLeague:   make(map[enums.League][]Team),
		exact:      make(map[string]map[string]string),
		bookFolded: make(map[string]map[string]string),
		leagueName: make(map[enums.League]map[string]string),
		markets:    make(map[string]enums.MarketType, len(f.Markets)),
	}

	for _, team := range f.Teams {
		if team.ID == "" || team.Name == "" {
			return nil, fmt.Errorf("team %+v: id and name are required", team)
		}
		if !team.League.IsValid() {
			return nil, fmt.Errorf("team %s: unknown league %q", team.ID, team.League)
		}
		if _, dup := t.teams[team.ID]; dup {
			return nil, fmt.Errorf("duplicate team id %q", team.ID)
		}
		t.teams[team.ID] = team
		t.byLeague[team.League] = append(t.byLeague[team.League], team)

		names := t.leagueName[team.League]
		if names == nil {
			names = make(map[string]string)
			t.leagueName[team.League] = names
		}
		for _, n := range append([]string{team.Name}, team.Aliases...) {
			key := textnorm.Fold(n)
			if other, ok := names[key]; ok && other != team.ID {
				return nil, fmt.Errorf("name %q is shared by teams %s and %s in %s", n, other, team.ID, team.League)
			}
			names[key] = team.ID
		}
	}
	for league := range t.byLeague {
		teams := t.byLeague[league]
		sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	}

	for book, aliases := range f.BookTeamAliases {
		if err := t.addBookAliases(book, aliases); err != nil {
			return nil, err
		}
	}

	for label, mt := range f.Markets {
		if err := t.addMarket(label, mt); err != nil {
			return nil, err
		}
	}
	for _, rule := range f.MarketKeywords {
		if !rule.Type.IsValid() || strings.TrimSpace(rule.Contains) == "" {
			return nil, fmt.Errorf("invalid market keyword rule %+v", rule)
		}
		t.keywords = append(t.keywords, KeywordRule{Contains: textnorm.Fold(rule.Contains), Type: rule.Type})
	}

	return t, nil
}

func (t *Table) addBookAliases(book string, aliases map[string]string) error {
	b := bookKey(book)
	if t.exact[b] == nil {
		t.exact[b] = make(map[string]string)
		t.bookFolded[b] = make(map[string]string)
	}
	for raw, id := range aliases {
		if _, ok := t.teams[id]; !ok {
			return fmt.Errorf("alias %s/%q points at unknown team %q", book, raw, id)
		}
		t.exact[b][raw] = id
		t.bookFolded[b][textnorm.Fold(raw)] = id
	}
	return nil
}

func (t *Table) addMarket(label string, mt enums.MarketType) error {
	if !mt.IsValid() {
		return fmt.Errorf("market alias %q: unknown type %q", label, mt)
	}
	t.markets[textnorm.Fold(label)] = mt
	return nil
}

// WithOverlay returns a new table with o merged in. The receiver is not modified.
func (t *Table) WithOverlay(o Overlay) (*Table, error) {
	n := &Table{
		version:    t.version,
		teams:      t.teams,
		byLeague:   t.byLeague,
		leagueName: t.leagueName,
		keywords:   t.keywords,
		exact:      make(map[string]map[string]string, len(t.exact)),
		bookFolded: make(map[string]map[string]string, len(t.bookFolded)),
		markets:    make(map[string]enums.MarketType, len(t.markets)),
	}
	for b, m := range t.exact {
		n.exact[b] = copyMap(m)
	}
	for b, m := range t.bookFolded {
		n.bookFolded[b] = copyMap(m)
	}
	for k, v := range t.markets {
		n.markets[k] = v
	}

	for book, aliases := range o.TeamAliases {
		if err := n.addBookAliases(book, aliases); err != nil {
			return nil, err
		}
	}
	for label, mt := range o.Markets {
		if err := n.addMarket(label, mt); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func bookKey(book string) string {
	return strings.ToLower(strings.TrimSpace(book))
}

// Version identifies the reload that produced the table.
func (t *Table) Version() uint64 {
	return t.version
}

// TeamAlias is the exact (book, raw) lookup.
func (t *Table) TeamAlias(book, raw string) (string, bool) {
	id, ok := t.exact[bookKey(book)][raw]
	return id, ok
}

// FoldedTeamAlias looks up an already folded name: book aliases first, then league names and global aliases.
func (t *Table) FoldedTeamAlias(book string, league enums.League, folded string) (string, bool) {
	if id, ok := t.bookFolded[bookKey(book)][folded]; ok {
		if team, ok := t.teams[id]; ok && team.League == league {
			return id, true
		}
	}
	id, ok := t.leagueName[league][folded]
	return id, ok
}

// TeamsInLeague returns the canonical teams of a league sorted by id.
func (t *Table) TeamsInLeague(league enums.League) []Team {
	return t.byLeague[league]
}

func (t *Table) Team(id string) (Team, bool) {
	team, ok := t.teams[id]
	return team, ok
}

// MarketType maps a raw market label. Exact labels win over keyword rules.
func (t *Table) MarketType(label string) (enums.MarketType, bool) {
	folded := textnorm.Fold(label)
	if folded == "" {
		return "", false
	}
	if mt, ok := t.markets[folded]; ok {
		return mt, true
	}
	for _, rule := range t.keywords {
		if strings.Contains(folded, rule.Contains) {
			return rule.Type, true
		}
	}
	return "", false
}

// Stats is used by the ops endpoint.
type Stats struct {
	Version     uint64 `json:"version"`
	Teams       int    `json:"teams"`
	BookAliases int    `json:"book_aliases"`
	Markets     int    `json:"markets"`
}

func (t *Table) Stats() Stats {
	s := Stats{Version: t.version, Teams: len(t.teams), Markets: len(t.markets)}
	for _, m := range t.exact {
		s.BookAliases += len(m)
	}
	return s
}
