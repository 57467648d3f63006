package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDIsEchoedAndGenerated(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil, map[string]string{"X-Request-Id": "req-7"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-7", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "req-7", decodeBody(t, rec)["requestId"])

	rec = env.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestCORSAllowsWhitelistedOrigin(t *testing.T) {
	env := newTestEnv(t)
	env.handler.config.Environment = "production"
	env.handler.config.Server.CORSAllowedOrigins = []string{"https://app.example.com"}

	rec := env.do(t, http.MethodGet, "/healthz", nil,
		map[string]string{"Origin": "https://app.example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	env := newTestEnv(t)
	env.handler.config.Environment = "production"
	env.handler.config.Server.CORSAllowedOrigins = []string{"https://app.example.com"}

	rec := env.do(t, http.MethodGet, "/healthz", nil,
		map[string]string{"Origin": "https://evil.example.com"})
	assertErrorCode(t, rec, http.StatusForbidden, "ORIGIN_NOT_ALLOWED")
	assert.Equal(t, "null", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodOptions, "/api/shifts/bulk", nil,
		map[string]string{"Origin": "https://anywhere.example.com"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET,POST,PUT,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}

func TestCORSAllowsAnyOriginInDevelopment(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil,
		map[string]string{"Origin": "http://localhost:5173"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
