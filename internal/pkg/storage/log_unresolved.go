package storage

import (
	"context"
	"log/slog"

	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

// LogUnresolvedReporter writes events to the process log when no Redis is configured.
type LogUnresolvedReporter struct{}

func (LogUnresolvedReporter) ReportUnresolved(_ context.Context, events []models.UnresolvedEvent) error {
	for _, ev := range events {
		slog.Info("Unresolved entity",
			"book", ev.Book,
			"league", ev.League,
			"kind", ev.Kind,
			"raw", ev.Raw,
			"outcome", ev.Outcome,
			"candidate", ev.Candidate,
			"score", ev.Score,
			"cycle_id", ev.CycleID,
		)
	}
	return nil
}

// LogEmitter stands in for Postgres in dry runs: it logs a one-line summary per cycle.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, rows []models.OddsComparison) error {
	if len(rows) == 0 {
		return nil
	}
	best := rows[0]
	for _, r := range rows[1:] {
		if r.ExpectedValue.GreaterThan(best.ExpectedValue) {
			best = r
		}
	}
	slog.Info("Comparisons computed (dry run, not stored)",
		"rows", len(rows),
		"best_market", best.MarketKey.String(),
		"best_book", best.TargetBook,
		"best_ev", best.ExpectedValue.StringFixed(4),
	)
	return nil
}
