package handler

import (
	"net/http"
	"strconv"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
	"github.com/venueops-dev/shift-sync/backend/internal/utils"
)

type scheduleCounts struct {
	Teams     int `json:"teams"`
	Unmatched int `json:"unmatched"`
	Shifts    int `json:"shifts"`
}

type scheduleResponse struct {
	RequestID string                 `json:"requestId"`
	Summary   string                 `json:"summary"`
	Date      string                 `json:"date"`
	Timezone  string                 `json:"timezone"`
	Teams     []domain.TeamView      `json:"teams"`
	Unmatched []domain.UnmatchedView `json:"unmatched"`
	Counts    scheduleCounts         `json:"counts"`
}

// GetSchedule 拉取某日的日历班次并按注册表的指派配成小组，
// 主置与助理都在当日有班次的小组才算配对成功，其余班次进 unmatched。
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	dateISO := r.URL.Query().Get("date")
	if !utils.IsValidISODate(dateISO) {
		h.errorJSON(w, r, http.StatusBadRequest, "INVALID_DATE", "Invalid date format. Expected YYYY-MM-DD", nil)
		return
	}

	ctx := r.Context()

	calendar, err := h.roster.GetCalendarShifts(ctx, dateISO)
	if err != nil {
		h.updateError(w, r, domain.AsUpdateError(err))
		return
	}
	assignments, err := h.registry.GetTeamAssignmentsByDate(ctx, dateISO)
	if err != nil {
		h.updateError(w, r, domain.AsUpdateError(err))
		return
	}

	shifts := make([]*domain.Shift, 0, len(calendar))
	for _, s := range calendar {
		if s.Type == "shift" {
			shifts = append(shifts, s)
		}
	}

	if len(shifts) == 0 {
		h.writeJSON(w, r, http.StatusOK, scheduleResponse{
			RequestID: requestIDFrom(r),
			Summary:   domain.SummaryOK,
			Date:      dateISO,
			Timezone:  h.config.Timezone,
			Teams:     []domain.TeamView{},
			Unmatched: []domain.UnmatchedView{},
		})
		return
	}

	assistIDs := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.AssistWorkerID != "" {
			assistIDs = append(assistIDs, a.AssistWorkerID)
		}
	}
	assistRosterIDs, err := h.registry.GetWorkerRosterIDs(ctx, assistIDs)
	if err != nil {
		h.updateError(w, r, domain.AsUpdateError(err))
		return
	}

	findShiftByUser := func(userID int64) *domain.Shift {
		if userID == 0 {
			return nil
		}
		for _, s := range shifts {
			if s.UserID() == userID {
				return s
			}
		}
		return nil
	}

	type pairedTeam struct {
		name        string
		mainShift   *domain.Shift
		assistShift *domain.Shift
	}

	paired := make([]pairedTeam, 0, len(assignments))
	matched := make(map[string]bool)

	for _, a := range assignments {
		assistRosterID := assistRosterIDs[a.AssistWorkerID]
		if a.Team == "" || a.MainRosterID == 0 || assistRosterID == 0 {
			continue
		}

		mainShift := findShiftByUser(a.MainRosterID)
		assistShift := findShiftByUser(assistRosterID)
		if mainShift == nil || assistShift == nil {
			continue
		}

		paired = append(paired, pairedTeam{name: a.Team, mainShift: mainShift, assistShift: assistShift})
		matched[mainShift.ID] = true
		matched[assistShift.ID] = true
	}

	unmatchedShifts := make([]*domain.Shift, 0)
	userIDSet := make(map[int64]bool)
	userIDs := make([]int64, 0, len(shifts))
	for _, s := range shifts {
		if !matched[s.ID] {
			unmatchedShifts = append(unmatchedShifts, s)
		}
		if id := s.UserID(); id != 0 && !userIDSet[id] {
			userIDSet[id] = true
			userIDs = append(userIDs, id)
		}
	}

	users, err := h.roster.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		h.updateError(w, r, domain.AsUpdateError(err))
		return
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	nameOf := func(userID int64) string {
		if name, ok := names[userID]; ok && name != "" {
			return name
		}
		return strconv.FormatInt(userID, 10)
	}

	teams := make([]domain.TeamView, 0, len(paired))
	for _, t := range paired {
		teams = append(teams, domain.TeamView{
			TeamName:  t.name,
			Status:    string(t.mainShift.Status),
			StartTime: utils.ExtractTimeFromDateTime(t.mainShift.DTStart),
			EndTime:   utils.ExtractTimeFromDateTime(t.mainShift.DTEnd),
			Main: domain.TeamMemberView{
				RosterID: t.mainShift.UserID(),
				Name:     nameOf(t.mainShift.UserID()),
				Shift:    h.updater.View(t.mainShift),
			},
			Assist: domain.TeamMemberView{
				RosterID: t.assistShift.UserID(),
				Name:     nameOf(t.assistShift.UserID()),
				Shift:    h.updater.View(t.assistShift),
			},
		})
	}

	unmatched := make([]domain.UnmatchedView, 0, len(unmatchedShifts))
	for _, s := range unmatchedShifts {
		unmatched = append(unmatched, domain.UnmatchedView{
			Name:  nameOf(s.UserID()),
			Shift: h.updater.View(s),
		})
	}

	h.writeJSON(w, r, http.StatusOK, scheduleResponse{
		RequestID: requestIDFrom(r),
		Summary:   domain.SummaryOK,
		Date:      dateISO,
		Timezone:  h.config.Timezone,
		Teams:     teams,
		Unmatched: unmatched,
		Counts: scheduleCounts{
			Teams:     len(teams),
			Unmatched: len(unmatched),
			Shifts:    len(shifts),
		},
	})
}
