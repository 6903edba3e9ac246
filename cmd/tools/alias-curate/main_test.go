package main

import (
	"testing"
	"time"

	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

func TestAggregate(t *testing.T) {
	t0 := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	events := []models.UnresolvedEvent{
		{Book: "crabsports", Kind: models.UnresolvedKindTeam, Raw: "Bostn Celtics", Outcome: models.OutcomeFuzzyAccepted, Candidate: "nba-bos", Score: 0.93, At: t0},
		{Book: "crabsports", Kind: models.UnresolvedKindMarket, Raw: "Player Props", Outcome: models.OutcomeUnknownMarket, At: t0},
		{Book: "crabsports", Kind: models.UnresolvedKindTeam, Raw: "Bostn Celtics", Outcome: models.OutcomeFuzzyAccepted, Candidate: "nba-bos", Score: 0.93, At: t0.Add(time.Minute)},
		{Book: "pinnacle", Kind: models.UnresolvedKindTeam, Raw: "Bostn Celtics", Outcome: models.OutcomeUnresolved, At: t0},
	}

	rows := aggregate(events)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	top := rows[0]
	if top.Book != "crabsports" || top.Raw != "Bostn Celtics" || top.Count != 2 {
		t.Errorf("top row = %+v, want crabsports Bostn Celtics seen twice", top)
	}
	if !top.LastSeen.Equal(t0.Add(time.Minute)) {
		t.Errorf("last seen = %s", top.LastSeen)
	}
	if rows[1].Book != "crabsports" || rows[1].Kind != models.UnresolvedKindMarket {
		t.Errorf("second row = %+v, want the crabsports market label", rows[1])
	}
}
