package scores

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kanbanpizza/server/internal/game"
)

// Repository persists round scores in Postgres for the historical
// leaderboard. It sits outside the session engine: a write failure is the
// caller's problem to log, never the room's.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repository over a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Schema is the round_scores table definition, applied at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS round_scores (
	id          BIGSERIAL PRIMARY KEY,
	room        TEXT        NOT NULL,
	round       INT         NOT NULL,
	score       INT         NOT NULL,
	completed   INT         NOT NULL,
	wasted      INT         NOT NULL,
	unsold      INT         NOT NULL,
	leftover    INT         NOT NULL,
	fulfilled   INT         NOT NULL DEFAULT 0,
	unmatched   INT         NOT NULL DEFAULT 0,
	remaining   INT         NOT NULL DEFAULT 0,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS round_scores_round_score_idx ON round_scores (round, score DESC);
`

// Migrate applies the schema.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply round_scores schema: %w", err)
	}
	return nil
}

// SaveRoundScore records one finished round.
func (r *Repository) SaveRoundScore(ctx context.Context, room string, result game.RoundResult) error {
	const q = `
		INSERT INTO round_scores
			(room, round, score, completed, wasted, unsold, leftover, fulfilled, unmatched, remaining)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, q,
		room, result.Round, result.Score,
		result.CompletedPizzas, result.WastedPizzas, result.UnsoldPizzas, result.IngredientsLeft,
		result.FulfilledOrders, result.UnmatchedPizzas, result.RemainingOrders,
	)
	if err != nil {
		return fmt.Errorf("insert round score: %w", err)
	}
	return nil
}

// TopScore is one leaderboard entry.
type TopScore struct {
	Room       string    `json:"room"`
	Round      int       `json:"round"`
	Score      int       `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TopScores returns the best historical scores for a round, highest first.
func (r *Repository) TopScores(ctx context.Context, round, limit int) ([]TopScore, error) {
	const q = `
		SELECT room, round, score, recorded_at
		FROM round_scores
		WHERE round = $1
		ORDER BY score DESC, recorded_at ASC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, round, limit)
	if err != nil {
		return nil, fmt.Errorf("query top scores: %w", err)
	}
	defer rows.Close()

	var out []TopScore
	for rows.Next() {
		var ts TopScore
		if err := rows.Scan(&ts.Room, &ts.Round, &ts.Score, &ts.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan top score: %w", err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}
