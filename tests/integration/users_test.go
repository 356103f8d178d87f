//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/tier"
)

func TestUsers_UpgradeRaisesLimits(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	userID := CreateUser(t, env)

	u, err := env.UserSvc.Upgrade(ctx, userID, tier.Pro, 30)
	require.NoError(t, err)
	assert.Equal(t, tier.Pro, u.Tier)
	assert.True(t, u.IsSubscribed)
	require.NotNil(t, u.SubscriptionExpiry)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *u.SubscriptionExpiry, time.Minute)

	resp := DoRequest(t, env, http.MethodGet, "/api/v1/ai/stats", nil, TokenFor(t, userID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, "pro", stats["userTier"])
	limits := stats["limits"].(map[string]any)
	assert.Equal(t, float64(100), limits["hourly"])
}

func TestUsers_RenewExtendsFromCurrentExpiry(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	userID := CreateUser(t, env)

	u, err := env.UserSvc.Upgrade(ctx, userID, tier.Basic, 10)
	require.NoError(t, err)
	first := *u.SubscriptionExpiry

	u, err = env.UserSvc.Renew(ctx, userID, 30)
	require.NoError(t, err)
	require.NotNil(t, u.SubscriptionExpiry)
	assert.WithinDuration(t, first.AddDate(0, 0, 30), *u.SubscriptionExpiry, time.Second)
	assert.Equal(t, tier.Basic, u.Tier)
}

func TestUsers_ExpiredSubscriptionFallsBackToFree(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	userID := CreateUser(t, env)

	_, err := env.Pool.Exec(ctx,
		`UPDATE users SET tier = 'pro', is_subscribed = TRUE, subscription_expiry = $2 WHERE id = $1`,
		userID, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	sub, err := env.UserSvc.Subscription(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, tier.Free, tier.Resolve(sub, time.Now()).Tier)
}

func TestUsers_DowngradeClearsSubscription(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	userID := CreateUser(t, env)

	_, err := env.UserSvc.Upgrade(ctx, userID, tier.Enterprise, 30)
	require.NoError(t, err)

	u, err := env.UserSvc.Downgrade(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, tier.Free, u.Tier)
	assert.False(t, u.IsSubscribed)
	assert.Nil(t, u.SubscriptionExpiry)
}
