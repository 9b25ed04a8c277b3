package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"live-quiz-engine/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultArchiver persists finished-session projections as JSONB rows. The
// engine is in-memory-authoritative while a session runs; only the final
// standings and responses are durable.
type ResultArchiver struct {
	pool *pgxpool.Pool
}

func NewResultArchiver(pool *pgxpool.Pool) *ResultArchiver {
	return &ResultArchiver{pool: pool}
}

func (a *ResultArchiver) ArchiveResult(ctx context.Context, result domain.SessionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal session result: %w", err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO session_results (session_id, quiz_id, join_code, finished_at, data)
		 VALUES ($1, $2, $3, $4, $5::jsonb)
		 ON CONFLICT (session_id) DO NOTHING`,
		result.SessionID, result.QuizID, result.JoinCode, result.FinishedAt, data)
	if err != nil {
		return fmt.Errorf("archive session result: %w", err)
	}
	return nil
}
