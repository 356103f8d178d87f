package quota

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/tier"
)

// Repository handles ai_rate_limits PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quota Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// consumeQuery creates the day's row with counts 1/1, or bumps the counters
// when the limits allow it. A rejected update leaves the row untouched and
// returns no row.
const consumeQuery = `
INSERT INTO ai_rate_limits (user_id, request_date, request_hour, hourly_count, daily_count, last_request_at)
VALUES ($1, $2::date, $3, 1, 1, $4)
ON CONFLICT (user_id, request_date) DO UPDATE SET
    hourly_count = CASE WHEN ai_rate_limits.request_hour <> EXCLUDED.request_hour
                        THEN 1 ELSE ai_rate_limits.hourly_count + 1 END,
    daily_count = ai_rate_limits.daily_count + 1,
    request_hour = EXCLUDED.request_hour,
    last_request_at = EXCLUDED.last_request_at
WHERE ai_rate_limits.daily_count < $6
  AND (ai_rate_limits.request_hour <> EXCLUDED.request_hour OR ai_rate_limits.hourly_count < $5)
RETURNING user_id, request_date, request_hour, hourly_count, daily_count, last_request_at`

// Consume atomically checks and increments the counters for slot.
// ok is false when a limit rejected the request.
func (r *Repository) Consume(ctx context.Context, userID int64, slot Slot, limits tier.Limits) (*Record, bool, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, consumeQuery,
		userID, slot.Date, slot.Hour, slot.At, ceiling(limits.Hourly), ceiling(limits.Daily),
	).Scan(&rec.UserID, &rec.RequestDate, &rec.RequestHour, &rec.HourlyCount, &rec.DailyCount, &rec.LastRequestAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("consuming quota: %w", err)
	}
	return &rec, true, nil
}

// Get returns the user's row for the given day, or nil if none exists.
func (r *Repository) Get(ctx context.Context, userID int64, date string) (*Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, request_date, request_hour, hourly_count, daily_count, last_request_at
		 FROM ai_rate_limits WHERE user_id = $1 AND request_date = $2::date`, userID, date,
	).Scan(&rec.UserID, &rec.RequestDate, &rec.RequestHour, &rec.HourlyCount, &rec.DailyCount, &rec.LastRequestAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching quota record: %w", err)
	}
	return &rec, nil
}

func ceiling(limit int) int {
	if limit == tier.Unlimited {
		return math.MaxInt32
	}
	return limit
}
