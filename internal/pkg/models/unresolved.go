package models

import "time"

// UnresolvedKind says which resolver produced the event.
type UnresolvedKind string

const (
	UnresolvedKindTeam   UnresolvedKind = "team"
	UnresolvedKindMarket UnresolvedKind = "market"
)

// UnresolvedOutcome is what happened to the raw string.
type UnresolvedOutcome string

const (
	OutcomeFuzzyAccepted UnresolvedOutcome = "fuzzy_accepted"
	OutcomeUnresolved    UnresolvedOutcome = "unresolved"
	OutcomeUnknownMarket UnresolvedOutcome = "unknown_market"
)

// UnresolvedEvent feeds alias-table curation. Score is the similarity when a fuzzy match was tried.
type UnresolvedEvent struct {
	Book      string            `json:"book"`
	League    string            `json:"league,omitempty"`
	Kind      UnresolvedKind    `json:"kind"`
	Raw       string            `json:"raw"`
	Outcome   UnresolvedOutcome `json:"outcome"`
	Candidate string            `json:"candidate,omitempty"`
	Score     float64           `json:"score,omitempty"`
	CycleID   string            `json:"cycle_id,omitempty"`
	At        time.Time         `json:"at"`
}
