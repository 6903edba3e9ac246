package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Vodeneev/sharpedge/internal/pkg/config"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

var _ ComparisonEmitter = (*PostgresComparisonStorage)(nil)

// PostgresComparisonStorage appends comparison rows to odds_comparisons.
type PostgresComparisonStorage struct {
	db *sql.DB
}

func NewPostgresComparisonStorage(cfg *config.PostgresConfig) (*PostgresComparisonStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresComparisonStorage{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL comparison storage initialized")
	return s, nil
}

func (s *PostgresComparisonStorage) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS odds_comparisons (
		id UUID PRIMARY KEY,
		cycle_id UUID NOT NULL,
		game_key VARCHAR(300) NOT NULL,
		league VARCHAR(20) NOT NULL,
		home_team_id VARCHAR(100) NOT NULL,
		away_team_id VARCHAR(100) NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		market_key VARCHAR(400) NOT NULL,
		market_type VARCHAR(20) NOT NULL,
		side VARCHAR(10) NOT NULL,
		line NUMERIC(8, 2),
		period VARCHAR(20) NOT NULL,
		target_book VARCHAR(50) NOT NULL,
		sharp_book VARCHAR(50) NOT NULL,
		target_price NUMERIC(12, 6) NOT NULL,
		target_price_american NUMERIC(12, 2) NOT NULL,
		sharp_price NUMERIC(12, 6) NOT NULL,
		sharp_price_other_side NUMERIC(12, 6) NOT NULL,
		fair_probability NUMERIC NOT NULL,
		fair_probability_other_side NUMERIC NOT NULL,
		vig_method VARCHAR(20) NOT NULL,
		expected_value NUMERIC NOT NULL,
		kelly_fraction NUMERIC NOT NULL,
		recommended_stake NUMERIC NOT NULL,
		target_observed_at TIMESTAMPTZ NOT NULL,
		sharp_observed_at TIMESTAMPTZ NOT NULL,
		collected_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_odds_comparisons_collected_at ON odds_comparisons(collected_at DESC);
	CREATE INDEX IF NOT EXISTS idx_odds_comparisons_market_key ON odds_comparisons(market_key, collected_at DESC);
	CREATE INDEX IF NOT EXISTS idx_odds_comparisons_ev ON odds_comparisons(expected_value DESC);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

const insertComparison = `
INSERT INTO odds_comparisons (
	id, cycle_id, game_key, league, home_team_id, away_team_id, start_time,
	market_key, market_type, side, line, period,
	target_book, sharp_book, target_price, target_price_american, sharp_price, sharp_price_other_side,
	fair_probability, fair_probability_other_side, vig_method,
	expected_value, kelly_fraction, recommended_stake,
	target_observed_at, sharp_observed_at, collected_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
`

// Emit inserts all rows in one transaction; a failed cycle leaves no partial rows behind.
func (s *PostgresComparisonStorage) Emit(ctx context.Context, rows []models.OddsComparison) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Failure{Op: "begin", Rows: len(rows), Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertComparison)
	if err != nil {
		return &Failure{Op: "prepare", Rows: len(rows), Err: err}
	}
	defer stmt.Close()

	for _, r := range rows {
		g, m := r.GameKey, r.MarketKey
		_, err := stmt.ExecContext(ctx,
			r.ID, r.CycleID, g.String(), string(g.League), g.HomeTeamID, g.AwayTeamID, g.Start,
			m.String(), string(m.Type), string(m.Side), m.Line, string(m.Period),
			r.TargetBook, r.SharpBook, r.TargetPrice, r.TargetPriceAmerican, r.SharpPrice, r.SharpPriceOther,
			r.FairProbability, r.FairProbabilityOther, r.VigMethod,
			r.ExpectedValue, r.KellyFraction, r.RecommendedStake,
			r.TargetObservedAt, r.SharpObservedAt, r.CollectedAt,
		)
		if err != nil {
			return &Failure{Op: "insert", Rows: len(rows), Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &Failure{Op: "commit", Rows: len(rows), Err: err}
	}
	return nil
}

func (s *PostgresComparisonStorage) Close() error {
	return s.db.Close()
}
