package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles ai_settings PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new settings Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `user_id, provider, model, default_length, default_style, default_language,
	stream_enabled, created_at, updated_at`

// GetOrCreate returns the user's settings row, creating one with defaults if it doesn't exist.
func (r *Repository) GetOrCreate(ctx context.Context, userID int64) (*Settings, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ai_settings (user_id, provider, model, default_length, default_style, default_language, stream_enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, DefaultProvider, DefaultModel, DefaultLength, DefaultStyle, DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("ensuring ai settings: %w", err)
	}

	s, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("ai settings for user %d missing after insert", userID)
	}
	return s, nil
}

// Get returns the user's settings row, or nil if none exists.
func (r *Repository) Get(ctx context.Context, userID int64) (*Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM ai_settings WHERE user_id = $1`, userID,
	).Scan(&s.UserID, &s.Provider, &s.Model, &s.DefaultLength, &s.DefaultStyle, &s.DefaultLanguage,
		&s.StreamEnabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching ai settings: %w", err)
	}
	return &s, nil
}

// Update writes the set fields of p. The caller ensures the row exists.
func (r *Repository) Update(ctx context.Context, userID int64, p Patch) error {
	query, args, ok := buildUpdate(userID, p)
	if !ok {
		return nil
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("updating ai settings: %w", err)
	}
	return nil
}

// patchColumns is the closed set of columns a Patch may touch.
var patchColumns = []struct {
	name  string
	value func(Patch) (any, bool)
}{
	{"default_length", func(p Patch) (any, bool) { return p.DefaultLength.Value, p.DefaultLength.Set }},
	{"default_style", func(p Patch) (any, bool) { return p.DefaultStyle.Value, p.DefaultStyle.Set }},
	{"default_language", func(p Patch) (any, bool) { return p.DefaultLanguage.Value, p.DefaultLanguage.Set }},
	{"stream_enabled", func(p Patch) (any, bool) { return p.StreamEnabled.Value, p.StreamEnabled.Set }},
}

func buildUpdate(userID int64, p Patch) (string, []any, bool) {
	var sets []string
	var args []any
	for _, c := range patchColumns {
		v, ok := c.value(p)
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", c.name, len(args)))
	}
	if len(sets) == 0 {
		return "", nil, false
	}
	args = append(args, userID)
	query := fmt.Sprintf("UPDATE ai_settings SET %s, updated_at = NOW() WHERE user_id = $%d",
		strings.Join(sets, ", "), len(args))
	return query, args, true
}
