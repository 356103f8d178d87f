package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/tier"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateSubscription(ctx context.Context, id int64, t tier.Tier, subscribed bool, expiry *time.Time) (bool, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT id, username, email, tier, is_subscribed, subscription_expiry FROM users WHERE id = $1`

	user := &User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.Tier, &user.IsSubscribed, &user.SubscriptionExpiry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return user, nil
}

// UpdateSubscription reports false when no user has the given id.
func (r *postgresRepository) UpdateSubscription(ctx context.Context, id int64, t tier.Tier, subscribed bool, expiry *time.Time) (bool, error) {
	query := `
		UPDATE users
		SET tier = $1, is_subscribed = $2, subscription_expiry = $3
		WHERE id = $4`

	tag, err := r.pool.Exec(ctx, query, t, subscribed, expiry, id)
	if err != nil {
		return false, fmt.Errorf("updating subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
