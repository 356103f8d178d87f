package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository handles ai_usage_logs and ai_history PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new usage Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertUsage appends one usage log row.
func (r *Repository) InsertUsage(ctx context.Context, e Entry, cost decimal.Decimal) error {
	var errMsg *string
	if e.ErrorMessage != "" {
		errMsg = &e.ErrorMessage
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ai_usage_logs
		   (user_id, note_id, action, input_length, output_length, tokens_used, cost,
		    provider, model, success, error_message, processing_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.UserID, e.NoteID, e.Action, e.InputLength, e.OutputLength, e.TokensUsed, cost,
		e.Provider, e.Model, e.Success, errMsg, e.ProcessingTime.Milliseconds())
	if err != nil {
		return fmt.Errorf("inserting usage log: %w", err)
	}
	return nil
}

// InsertHistory stores one history row.
func (r *Repository) InsertHistory(ctx context.Context, h HistoryEntry, expiresAt time.Time) error {
	opts, err := json.Marshal(h.Options)
	if err != nil {
		return fmt.Errorf("encoding history options: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO ai_history
		   (user_id, note_id, action, original_content, result_content, options, tokens_used, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		h.UserID, h.NoteID, h.Action, h.OriginalContent, h.ResultContent, opts, h.TokensUsed, expiresAt)
	if err != nil {
		return fmt.Errorf("inserting history: %w", err)
	}
	return nil
}

// Aggregate sums a user's usage rows created within p.
func (r *Repository) Aggregate(ctx context.Context, userID int64, p Period) (*Aggregate, error) {
	var a Aggregate
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(tokens_used), 0),
		        COALESCE(SUM(cost), 0),
		        COALESCE(AVG(processing_time), 0)::float8
		 FROM ai_usage_logs
		 WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`,
		userID, p.From, p.To,
	).Scan(&a.Requests, &a.Tokens, &a.Cost, &a.AvgTimeMs)
	if err != nil {
		return nil, fmt.Errorf("aggregating usage: %w", err)
	}
	return &a, nil
}
