package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

func recordAuditEntry(t *testing.T, env *testEnv, requestID string, body, payload string) {
	t.Helper()
	err := env.audit.Record(context.Background(), &domain.AuditEntry{
		RequestID:  requestID,
		Method:     http.MethodPost,
		Path:       "/api/shifts/bulk",
		Body:       json.RawMessage(body),
		StatusCode: http.StatusOK,
		Payload:    json.RawMessage(payload),
		Outcome:    domain.AuditOutcomeSuccess,
	})
	require.NoError(t, err)
}

func TestGetAuditLogMapsEntries(t *testing.T) {
	env := newTestEnv(t)
	recordAuditEntry(t, env, "req-1",
		`{"groups":[{"groupId":"Team Alpha","updates":[]},{"groupId":"Team Bravo","updates":[]}]}`,
		`{"results":[{"status":"success","results":[{"data":{"date":"2026-08-10"}}]},{"status":"failed"}]}`)

	rec := env.do(t, http.MethodGet, "/api/audit-log", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	entries, ok := body["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)

	entry := entries[0].(map[string]any)
	assert.Equal(t, "bulk", entry["type"])
	assert.Equal(t, "Bulk edit 2 teams for August 10, 2026", entry["summary"])
	assert.Equal(t, "2026-08-10", entry["scheduleDate"])
	assert.Equal(t, "req-1", entry["requestId"])

	groups := entry["groups"].([]any)
	require.Len(t, groups, 2)
	assert.Equal(t, "Team Alpha", groups[0].(map[string]any)["groupId"])
	assert.Equal(t, "success", groups[0].(map[string]any)["status"])
	assert.Equal(t, "failed", groups[1].(map[string]any)["status"])
}

func TestGetAuditLogSingleGroupSummary(t *testing.T) {
	env := newTestEnv(t)
	recordAuditEntry(t, env, "req-1",
		`{"groups":[{"groupId":"Team Alpha","updates":[]}]}`,
		`{"results":[{"status":"success"}]}`)
	recordAuditEntry(t, env, "req-2", `{"updates":[{"occurrenceId":"100"}]}`, `{}`)

	rec := env.do(t, http.MethodGet, "/api/audit-log", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := decodeBody(t, rec)["entries"].([]any)
	require.Len(t, entries, 2)

	// 最新的在前
	newest := entries[0].(map[string]any)
	assert.Equal(t, "single", newest["type"])
	assert.Equal(t, "Shift update", newest["summary"])

	oldest := entries[1].(map[string]any)
	assert.Equal(t, "single", oldest["type"])
	assert.Equal(t, "Team Alpha shifts updated", oldest["summary"])
}

func TestGetAuditLogPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		recordAuditEntry(t, env, "req", `{}`, `{}`)
		time.Sleep(time.Millisecond)
	}

	first := env.do(t, http.MethodGet, "/api/audit-log?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, first.Code)
	firstBody := decodeBody(t, first)
	require.Len(t, firstBody["entries"].([]any), 2)
	cursor, ok := firstBody["nextCursor"].(string)
	require.True(t, ok)
	require.NotEmpty(t, cursor)

	second := env.do(t, http.MethodGet, "/api/audit-log?limit=2&cursor="+cursor, nil, nil)
	require.Equal(t, http.StatusOK, second.Code)
	secondBody := decodeBody(t, second)
	require.Len(t, secondBody["entries"].([]any), 2)

	firstIDs := firstBody["entries"].([]any)[0].(map[string]any)["id"]
	secondIDs := secondBody["entries"].([]any)[0].(map[string]any)["id"]
	assert.NotEqual(t, firstIDs, secondIDs)
}

func TestGetAuditLogClampsLimit(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		recordAuditEntry(t, env, "req", `{}`, `{}`)
	}

	rec := env.do(t, http.MethodGet, "/api/audit-log?limit=0", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody(t, rec)["entries"].([]any)
	assert.Len(t, entries, 3, "非法 limit 回退到默认值")

	rec = env.do(t, http.MethodGet, "/api/audit-log?limit=-5", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries = decodeBody(t, rec)["entries"].([]any)
	assert.Len(t, entries, 1)
}
