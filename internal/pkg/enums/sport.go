package enums

import "strings"

// Sport represents supported sports types
type Sport string

const (
	Basketball Sport = "basketball"
	Baseball   Sport = "baseball"
	Hockey     Sport = "hockey"
	Football   Sport = "football"
	Soccer     Sport = "soccer"
)

// League is the scope unit adapters are asked to fetch and the first part of every game key.
type League string

const (
	NBA   League = "nba"
	WNBA  League = "wnba"
	MLB   League = "mlb"
	NHL   League = "nhl"
	NFL   League = "nfl"
	NCAAF League = "ncaaf"
	MLS   League = "mls"
)

// LeagueInfo contains additional information about a league
type LeagueInfo struct {
	Name  string
	Sport Sport
}

// GetLeagueInfo returns league information
func (l League) GetLeagueInfo() LeagueInfo {
	switch l {
	case NBA:
		return LeagueInfo{Name: "NBA", Sport: Basketball}
	case WNBA:
		return LeagueInfo{Name: "WNBA", Sport: Basketball}
	case MLB:
		return LeagueInfo{Name: "MLB", Sport: Baseball}
	case NHL:
		return LeagueInfo{Name: "NHL", Sport: Hockey}
	case NFL:
		return LeagueInfo{Name: "NFL", Sport: Football}
	case NCAAF:
		return LeagueInfo{Name: "NCAAF", Sport: Football}
	case MLS:
		return LeagueInfo{Name: "MLS", Sport: Soccer}
	default:
		return LeagueInfo{Name: "Unknown", Sport: ""}
	}
}

// IsValid checks if league is supported
func (l League) IsValid() bool {
	switch l {
	case NBA, WNBA, MLB, NHL, NFL, NCAAF, MLS:
		return true
	default:
		return false
	}
}

func (l League) String() string {
	return string(l)
}

// GetAllLeagues returns all supported leagues
func GetAllLeagues() []League {
	return []League{NBA, WNBA, MLB, NHL, NFL, NCAAF, MLS}
}

// ParseLeague parses a case-insensitive league name
func ParseLeague(s string) (League, bool) {
	league := League(strings.ToLower(strings.TrimSpace(s)))
	return league, league.IsValid()
}
