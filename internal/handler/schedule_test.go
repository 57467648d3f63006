package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
	"github.com/venueops-dev/shift-sync/backend/internal/registry"
)

func calendarShift(id string, userID int64, shiftType string) *domain.Shift {
	return &domain.Shift{
		ID:      id,
		Type:    shiftType,
		Status:  "published",
		DTStart: "2026-08-10T09:00:00-04:00",
		DTEnd:   "2026-08-10T17:00:00-04:00",
		User:    &domain.ShiftUser{ID: userID},
	}
}

func TestGetScheduleRejectsInvalidDate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/schedule?date=08-10-2026", nil, nil)
	assertErrorCode(t, rec, http.StatusBadRequest, "INVALID_DATE")

	rec = env.do(t, http.MethodGet, "/api/schedule", nil, nil)
	assertErrorCode(t, rec, http.StatusBadRequest, "INVALID_DATE")
}

func TestGetScheduleEmptyDay(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/schedule?date=2026-08-10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["summary"])
	assert.Equal(t, "2026-08-10", body["date"])
	assert.Empty(t, body["teams"])
	assert.Empty(t, body["unmatched"])
}

func TestGetSchedulePairsTeamsAndCollectsUnmatched(t *testing.T) {
	env := newTestEnv(t)
	env.roster.calendar["2026-08-10"] = []*domain.Shift{
		calendarShift("100:2026-08-10", 1001, "shift"),
		calendarShift("200:2026-08-10", 1002, "shift"),
		calendarShift("300:2026-08-10", 1003, "shift"),
		calendarShift("900:2026-08-10", 1009, "timeoff"),
	}
	env.roster.users[1001] = "Alice Chen"
	env.roster.users[1002] = "Bob Lee"
	env.registry.assignments["2026-08-10"] = []registry.Assignment{
		{Team: "Team Alpha", MainRosterID: 1001, AssistWorkerID: "W-2"},
	}
	env.registry.rosterIDs["W-2"] = 1002

	rec := env.do(t, http.MethodGet, "/api/schedule?date=2026-08-10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	teams, ok := body["teams"].([]any)
	require.True(t, ok)
	require.Len(t, teams, 1)

	team := teams[0].(map[string]any)
	assert.Equal(t, "Team Alpha", team["teamName"])
	assert.Equal(t, "09:00", team["startTime"])
	assert.Equal(t, "17:00", team["endTime"])

	main := team["main"].(map[string]any)
	assert.Equal(t, "Alice Chen", main["name"])
	assert.Equal(t, float64(1001), main["rosterId"])
	assist := team["assist"].(map[string]any)
	assert.Equal(t, "Bob Lee", assist["name"])

	// 没有姓名的成员回退到数字标识，timeoff 类型的记录被过滤
	unmatched, ok := body["unmatched"].([]any)
	require.True(t, ok)
	require.Len(t, unmatched, 1)
	assert.Equal(t, "1003", unmatched[0].(map[string]any)["name"])

	counts := body["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["teams"])
	assert.Equal(t, float64(1), counts["unmatched"])
	assert.Equal(t, float64(3), counts["shifts"])
}

func TestGetScheduleSkipsIncompleteAssignments(t *testing.T) {
	env := newTestEnv(t)
	env.roster.calendar["2026-08-10"] = []*domain.Shift{
		calendarShift("100:2026-08-10", 1001, "shift"),
	}
	env.registry.assignments["2026-08-10"] = []registry.Assignment{
		{Team: "Team Alpha", MainRosterID: 1001, AssistWorkerID: "W-9"},
	}
	// W-9 在注册表里查不到对应的排班系统标识

	rec := env.do(t, http.MethodGet, "/api/schedule?date=2026-08-10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Empty(t, body["teams"])
	unmatched := body["unmatched"].([]any)
	assert.Len(t, unmatched, 1)
}
