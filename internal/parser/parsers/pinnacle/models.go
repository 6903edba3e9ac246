package pinnacle

// Arcadia guest API v0.1 payloads, only the fields the adapter reads.

type Matchup struct {
	ID        int64  `json:"id"`
	ParentID  *int64 `json:"parentId,omitempty"`
	StartTime string `json:"startTime"` // RFC3339
	Type      string `json:"type"`      // "matchup" | "special"
	IsLive    bool   `json:"isLive"`

	Participants []Participant `json:"participants"`
}

type Participant struct {
	Alignment string `json:"alignment"` // "home" | "away"
	Name      string `json:"name"`
}

type Market struct {
	MatchupID   int64   `json:"matchupId"`
	Period      int     `json:"period"` // 0 full game, 1 first half
	Type        string  `json:"type"`   // moneyline | spread | total | team_total
	Key         string  `json:"key"`
	IsAlternate bool    `json:"isAlternate"`
	Status      string  `json:"status"`
	Prices      []Price `json:"prices"`
}

type Price struct {
	Designation string   `json:"designation"` // home/away/draw or over/under
	Points      *float64 `json:"points,omitempty"`
	Price       int      `json:"price"` // American odds
}
