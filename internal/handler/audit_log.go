package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

type auditGroupView struct {
	GroupID string `json:"groupId"`
	Status  string `json:"status"`
}

type auditEntryView struct {
	ID           string           `json:"id"`
	Timestamp    string           `json:"timestamp"`
	Outcome      string           `json:"outcome"`
	Type         string           `json:"type"`
	Summary      string           `json:"summary"`
	ScheduleDate string           `json:"scheduleDate,omitempty"`
	RequestID    string           `json:"requestId"`
	Groups       []auditGroupView `json:"groups"`
}

type auditLogResponse struct {
	RequestID  string           `json:"requestId"`
	Entries    []auditEntryView `json:"entries"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed != 0 {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 50 {
		limit = 50
	}
	cursor := r.URL.Query().Get("cursor")

	page, err := h.auditStore.Query(r.Context(), limit, cursor)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	views := make([]auditEntryView, 0, len(page.Entries))
	for i := range page.Entries {
		views = append(views, mapAuditEntry(&page.Entries[i]))
	}

	h.writeJSON(w, r, http.StatusOK, auditLogResponse{
		RequestID:  requestIDFrom(r),
		Entries:    views,
		NextCursor: page.NextCursor,
	})
}

// extractScheduleDate 从响应体里找出第一条带日期的逐项结果
func extractScheduleDate(payload json.RawMessage) string {
	var body struct {
		Results []struct {
			Results []struct {
				Data struct {
					Date string `json:"date"`
				} `json:"data"`
			} `json:"results"`
		} `json:"results"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	for _, group := range body.Results {
		for _, item := range group.Results {
			if item.Data.Date != "" {
				return item.Data.Date
			}
		}
	}
	return ""
}

// mapAuditEntry 把存储层的审计条目整理成前端时间线需要的形状，
// 摘要文案根据请求里的编组数量与响应里的排班日期拼出来。
func mapAuditEntry(entry *domain.AuditEntry) auditEntryView {
	var body struct {
		Groups []struct {
			GroupID string `json:"groupId"`
		} `json:"groups"`
	}
	_ = json.Unmarshal(entry.Body, &body)

	var payload struct {
		Results []struct {
			Status string `json:"status"`
		} `json:"results"`
	}
	_ = json.Unmarshal(entry.Payload, &payload)

	groups := make([]auditGroupView, 0, len(body.Groups))
	for i, g := range body.Groups {
		view := auditGroupView{GroupID: g.GroupID, Status: "unknown"}
		if view.GroupID == "" {
			view.GroupID = fmt.Sprintf("Group %d", i+1)
		}
		if i < len(payload.Results) && payload.Results[i].Status != "" {
			view.Status = payload.Results[i].Status
		}
		groups = append(groups, view)
	}

	scheduleDate := extractScheduleDate(entry.Payload)
	formattedDate := ""
	if scheduleDate != "" {
		if parsed, err := time.Parse("2006-01-02", scheduleDate); err == nil {
			formattedDate = parsed.Format("January 2, 2006")
		}
	}

	isBulk := len(body.Groups) > 1
	var summary string
	switch {
	case isBulk:
		summary = fmt.Sprintf("Bulk edit %d teams", len(body.Groups))
		if formattedDate != "" {
			summary += " for " + formattedDate
		}
	case len(body.Groups) == 1:
		teamName := body.Groups[0].GroupID
		if teamName == "" {
			teamName = "Unknown team"
		}
		summary = teamName + " shifts updated"
		if formattedDate != "" {
			summary += " for " + formattedDate
		}
	default:
		summary = "Shift update"
	}

	id := entry.ID
	if id == "" {
		id = entry.RequestID
	}
	outcome := entry.Outcome
	if outcome == "" {
		outcome = "unknown"
	}
	entryType := "single"
	if isBulk {
		entryType = "bulk"
	}

	return auditEntryView{
		ID:           id,
		Timestamp:    entry.CreatedAt.Format(time.RFC3339),
		Outcome:      outcome,
		Type:         entryType,
		Summary:      summary,
		ScheduleDate: scheduleDate,
		RequestID:    entry.RequestID,
		Groups:       groups,
	}
}
