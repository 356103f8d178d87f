//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_DefaultsCreatedOnFirstRead(t *testing.T) {
	env := SetupTestEnv(t)
	userID := CreateUser(t, env)
	token := TokenFor(t, userID)

	resp := DoRequest(t, env, http.MethodGet, "/api/v1/ai/settings", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := ParseResponse(t, resp)

	data := body["data"].(map[string]any)
	assert.Equal(t, "medium", data["default_length"])
	assert.Equal(t, "professional", data["default_style"])
	assert.Equal(t, "zh", data["default_language"])
	assert.Equal(t, true, data["stream_enabled"])
}

func TestSettings_PartialUpdateLeavesOtherFields(t *testing.T) {
	env := SetupTestEnv(t)
	userID := CreateUser(t, env)
	token := TokenFor(t, userID)

	resp := DoRequest(t, env, http.MethodPut, "/api/v1/ai/settings",
		map[string]any{"default_style": "casual", "stream_enabled": false}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "设置已更新", ParseResponse(t, resp)["message"])

	resp = DoRequest(t, env, http.MethodGet, "/api/v1/ai/settings", nil, token)
	data := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, "casual", data["default_style"])
	assert.Equal(t, false, data["stream_enabled"])
	assert.Equal(t, "medium", data["default_length"])
	assert.Equal(t, "zh", data["default_language"])
}

func TestSettings_InvalidValueRejected(t *testing.T) {
	env := SetupTestEnv(t)
	userID := CreateUser(t, env)
	token := TokenFor(t, userID)

	resp := DoRequest(t, env, http.MethodPut, "/api/v1/ai/settings",
		map[string]any{"default_language": "fr"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = DoRequest(t, env, http.MethodGet, "/api/v1/ai/settings", nil, token)
	data := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, "zh", data["default_language"])
}

func TestSettings_StoredDefaultsApplyToRequests(t *testing.T) {
	env := SetupTestEnv(t)
	userID := CreateUser(t, env)
	token := TokenFor(t, userID)

	resp := DoRequest(t, env, http.MethodPut, "/api/v1/ai/settings",
		map[string]any{"stream_enabled": false}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// No streamEnabled in the request: the stored false wins, so the answer is JSON.
	resp = DoRequest(t, env, http.MethodPost, "/api/v1/ai/polish",
		map[string]any{"content": "Some rough text"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	resp.Body.Close()
}
