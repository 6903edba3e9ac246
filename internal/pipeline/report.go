package pipeline

import (
	"time"

	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

// State is the stage a cycle reached. Degraded is a separate marker, not a state.
type State string

const (
	StateFetching    State = "FETCHING"
	StateResolving   State = "RESOLVING"
	StateCalculating State = "CALCULATING"
	StateEmitting    State = "EMITTING"
	StateDone        State = "DONE"
)

// Drop reasons for observations and quotes that never became a comparison.
const (
	DropInvalidPrice       = "invalid_price"
	DropInvalidObservation = "invalid_observation"
	DropUnresolvedTeam     = "unresolved_team"
	DropInvalidStartTime   = "invalid_start_time"
	DropSameTeam           = "same_team"
	DropUnknownMarketType  = "unknown_market_type"
	DropInvalidLine        = "invalid_line"
	DropUnknownSide        = "unknown_side"
	DropUnknownPeriod      = "unknown_period"
	DropDuplicateQuote     = "duplicate_quote"
	DropMissingSharp       = "missing_sharp_quote"
	DropMissingSharpOther  = "missing_sharp_other_side"
	DropCalculation        = "calculation_error"
)

// BookReport is one book's fetch outcome.
type BookReport struct {
	Book         string               `json:"book"`
	Observations int                  `json:"observations"`
	Attempts     int                  `json:"attempts"`
	Took         time.Duration        `json:"took"`
	Failure      *models.FetchFailure `json:"failure,omitempty"`
}

// CycleReport summarises one cycle. It is returned by RunCycle and served by the health server.
type CycleReport struct {
	ID         string    `json:"id"`
	State      State     `json:"state"`
	Degraded   bool      `json:"degraded"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	AliasVersion     uint64 `json:"alias_version"`
	AliasReloadError string `json:"alias_reload_error,omitempty"`

	Books        []BookReport   `json:"books"`
	Observations int            `json:"observations"`
	Resolved     int            `json:"resolved"`
	Games        int            `json:"games"`
	Drops        map[string]int `json:"drops,omitempty"`

	Comparisons      []models.OddsComparison `json:"-"`
	ComparisonCount  int                     `json:"comparisons"`
	PositiveEV       int                     `json:"positive_ev"`
	Alerts           int                     `json:"alerts"`
	EmitError        string                  `json:"emit_error,omitempty"`
	UnresolvedEvents int                     `json:"unresolved_events"`
}

// Failures returns the typed failure of every book that produced no data.
func (r *CycleReport) Failures() []*models.FetchFailure {
	var out []*models.FetchFailure
	for _, b := range r.Books {
		if b.Failure != nil {
			out = append(out, b.Failure)
		}
	}
	return out
}

// Outcome is the metrics label: done, degraded or failed.
func (r *CycleReport) Outcome() string {
	switch {
	case r.State != StateDone:
		return "failed"
	case r.Degraded:
		return "degraded"
	default:
		return "done"
	}
}

func (r *CycleReport) drop(reason string) {
	if r.Drops == nil {
		r.Drops = make(map[string]int)
	}
	r.Drops[reason]++
}
