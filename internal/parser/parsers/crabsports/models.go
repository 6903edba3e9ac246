package crabsports

import "github.com/shopspring/decimal"

type requestPayload struct {
	Context    requestContext     `json:"context"`
	Components []requestComponent `json:"components"`
}

type requestContext struct {
	URLKey    string            `json:"url_key"`
	Version   string            `json:"version"`
	Device    string            `json:"device"`
	Lang      string            `json:"lang"`
	Timezone  string            `json:"timezone"`
	URLParams map[string]string `json:"url_params"`
}

type requestComponent struct {
	TreeCompoKey string         `json:"tree_compo_key"`
	Params       map[string]any `json:"params"`
}

type response struct {
	Components []component `json:"components"`
}

type component struct {
	TreeCompoKey string         `json:"tree_compo_key"`
	Data         *eventListData `json:"data"`
}

type eventListData struct {
	Competitions []struct {
		Events []event `json:"events"`
	} `json:"competitions"`
	Events []event `json:"events"`
}

type event struct {
	ID     any    `json:"id"`
	Start  string `json:"start"` // ISO 8601 with offset
	Actors []struct {
		Type  string `json:"type"` // home | away
		Label string `json:"label"`
	} `json:"actors"`
	Markets []struct {
		Bets []bet `json:"bets"`
	} `json:"markets"`
}

type bet struct {
	Label      string      `json:"label"`
	Selections []selection `json:"selections"`
}

type selection struct {
	Label string              `json:"label"`
	Odds  decimal.NullDecimal `json:"odds"` // decimal odds
}
