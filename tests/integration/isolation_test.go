//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolation_SettingsArePerUser(t *testing.T) {
	env := SetupTestEnv(t)
	alice := CreateUser(t, env)
	bob := CreateUser(t, env)

	resp := DoRequest(t, env, http.MethodPut, "/api/v1/ai/settings",
		map[string]any{"default_language": "en"}, TokenFor(t, alice))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = DoRequest(t, env, http.MethodGet, "/api/v1/ai/settings", nil, TokenFor(t, bob))
	data := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, "zh", data["default_language"])
}

func TestIsolation_QuotaIsPerUser(t *testing.T) {
	env := SetupTestEnv(t)
	alice := CreateUser(t, env)
	bob := CreateUser(t, env)

	for range 3 {
		resp := DoRequest(t, env, http.MethodPost, "/api/v1/ai/polish", map[string]any{
			"content": "Some rough text",
			"options": map[string]any{"streamEnabled": false},
		}, TokenFor(t, alice))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp := DoRequest(t, env, http.MethodGet, "/api/v1/ai/stats", nil, TokenFor(t, bob))
	stats := ParseResponse(t, resp)["data"].(map[string]any)
	rate := stats["rateLimit"].(map[string]any)
	assert.Equal(t, float64(0), rate["hourly_count"])
	today := stats["today"].(map[string]any)
	assert.Equal(t, float64(0), today["total_requests"])

	var n int
	err := env.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM ai_usage_logs WHERE user_id = $1`, alice).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIsolation_RejectsForgedToken(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, http.MethodGet, "/api/v1/ai/settings", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = DoRequest(t, env, http.MethodPost, "/api/v1/ai/polish", map[string]any{"content": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
