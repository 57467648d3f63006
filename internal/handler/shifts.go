package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/venueops-dev/shift-sync/backend/internal/audit"
	"github.com/venueops-dev/shift-sync/backend/internal/domain"
	"github.com/venueops-dev/shift-sync/backend/internal/idempotency"
)

// executeWrite 把一次写路由包进幂等与审计管道：
// 带幂等键的请求先预定，重放与冲突在执行前拦截；
// 执行产生的响应被存储供重放，并异步落一条审计记录。
func (h *Handler) executeWrite(w http.ResponseWriter, r *http.Request, body []byte, execute func(ctx context.Context) (int, any)) {
	method, path := r.Method, r.URL.Path
	idemKey := r.Header.Get("Idempotency-Key")

	var scopedKey, fingerprint string
	if idemKey != "" {
		scopedKey = idempotency.ScopedKey(method, path, idemKey)
		fingerprint = idempotency.Fingerprint(method, path, body)

		reserved, err := h.idempotency.Reserve(r.Context(), scopedKey, fingerprint)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		switch reserved.Status {
		case idempotency.StatusReplay:
			h.writeRawJSON(w, r, reserved.StatusCode, reserved.Payload)
			return
		case idempotency.StatusConflict:
			h.errorJSON(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSED",
				"Idempotency key was already used with a different request body", nil)
			return
		case idempotency.StatusInProgress:
			h.errorJSON(w, r, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS",
				"An identical request is already in progress", nil)
			return
		}
	}

	start := time.Now()
	statusCode, payload := execute(r.Context())
	durationMs := time.Since(start).Milliseconds()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		if scopedKey != "" {
			if relErr := h.idempotency.Release(r.Context(), scopedKey); relErr != nil {
				slog.Error("撤销幂等预定失败", "key", scopedKey, "error", relErr)
			}
		}
		h.internalServerError(w, r, err)
		return
	}

	if scopedKey != "" {
		if err := h.idempotency.Complete(r.Context(), scopedKey, fingerprint, statusCode, payloadJSON); err != nil {
			// 完成失败只影响后续重放，不影响本次响应
			slog.Error("写入幂等记录失败", "key", scopedKey, "error", err)
		}
	}

	h.recorder.Record(&domain.AuditEntry{
		RequestID:      requestIDFrom(r),
		IdempotencyKey: idemKey,
		Method:         method,
		Path:           path,
		Body:           json.RawMessage(body),
		StatusCode:     statusCode,
		Payload:        payloadJSON,
		DurationMs:     durationMs,
		Outcome:        audit.DeriveOutcome(statusCode, payloadJSON),
	})

	h.writeRawJSON(w, r, statusCode, payloadJSON)
}

type singleUpdateRequest struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status"`
}

type singleUpdateData struct {
	OccurrenceID string            `json:"occurrenceId"`
	UpdatedShift *domain.ShiftView `json:"updatedShift"`
}

type singleUpdateResponse struct {
	RequestID string           `json:"requestId"`
	Summary   string           `json:"summary"`
	Timezone  string           `json:"timezone"`
	Data      singleUpdateData `json:"data"`
}

// singleFailureResponse 与批量模式的单项失败保持同一形状
type singleFailureResponse struct {
	RequestID    string            `json:"requestId"`
	Summary      string            `json:"summary"`
	Index        *int              `json:"index"`
	OccurrenceID string            `json:"occurrenceId"`
	Status       string            `json:"status"`
	Error        *domain.ItemError `json:"error"`
}

func (h *Handler) UpdateSingleShift(w http.ResponseWriter, r *http.Request) {
	occurrenceID := chi.URLParam(r, "occurrenceID")
	if decoded, err := url.PathUnescape(occurrenceID); err == nil {
		occurrenceID = decoded
	}

	body, err := h.readBody(r)
	if err != nil {
		h.errorJSON(w, r, http.StatusBadRequest, "INVALID_BODY", "request body is unreadable", nil)
		return
	}

	req := singleUpdateRequest{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.errorJSON(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
			return
		}
	}

	h.executeWrite(w, r, body, func(ctx context.Context) (int, any) {
		item := domain.UpdateItem{
			OccurrenceID: occurrenceID,
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			Status:       req.Status,
		}

		view, err := h.updater.ApplyUpdate(ctx, &item, nil)
		if err != nil {
			ue := domain.AsUpdateError(err)
			return ue.StatusCode, singleFailureResponse{
				RequestID:    requestIDFrom(r),
				Summary:      domain.SummaryFailed,
				OccurrenceID: occurrenceID,
				Status:       domain.ResultStatusFailed,
				Error:        ue.Item(),
			}
		}

		return http.StatusOK, singleUpdateResponse{
			RequestID: requestIDFrom(r),
			Summary:   domain.SummaryOK,
			Timezone:  h.config.Timezone,
			Data: singleUpdateData{
				OccurrenceID: occurrenceID,
				UpdatedShift: view,
			},
		}
	})
}

type bulkGroupRequest struct {
	GroupID string              `json:"groupId" validate:"required"`
	Atomic  *bool               `json:"atomic"`
	Updates []domain.UpdateItem `json:"updates" validate:"required,min=1"`
}

type bulkUpdateRequest struct {
	Groups  []bulkGroupRequest  `json:"groups" validate:"required_without=Updates,omitempty,min=1,dive"`
	Updates []domain.UpdateItem `json:"updates" validate:"required_without=Groups,omitempty,min=1"`
}

func (h *Handler) UpdateBulkShifts(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(r)
	if err != nil {
		h.errorJSON(w, r, http.StatusBadRequest, "INVALID_BODY", "request body is unreadable", nil)
		return
	}

	req := bulkUpdateRequest{}
	if err := json.Unmarshal(body, &req); err != nil {
		h.errorJSON(w, r, http.StatusBadRequest, "INVALID_BULK_PAYLOAD", "request body must be valid JSON", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.errorJSON(w, r, http.StatusBadRequest, "INVALID_BULK_PAYLOAD",
			"request must carry a non-empty groups or updates array",
			h.translateValidationError(err))
		return
	}

	h.executeWrite(w, r, body, func(ctx context.Context) (int, any) {
		// 编组模式优先，两者都给时以编组为准
		if len(req.Groups) > 0 {
			groups := make([]domain.Group, len(req.Groups))
			for i, g := range req.Groups {
				groups[i] = domain.Group{GroupID: g.GroupID, Atomic: g.Atomic, Updates: g.Updates}
			}

			result := h.updater.ApplyGrouped(ctx, groups)
			result.RequestID = requestIDFrom(r)
			result.Timezone = h.config.Timezone
			h.alertOnGroupedFailure(r, result)
			// 编组模式始终返回 200，成败细节在响应体里
			return http.StatusOK, result
		}

		result := h.updater.ApplyFlat(ctx, req.Updates)
		result.RequestID = requestIDFrom(r)
		result.Timezone = h.config.Timezone
		statusCode := http.StatusOK
		if result.Summary == domain.SummaryFailed {
			statusCode = http.StatusConflict
		}
		if result.Summary == domain.SummaryFailed {
			h.alertOnFlatFailure(r, result)
		}
		return statusCode, result
	})
}

// alertOnGroupedFailure 在所有层级耗尽后仍有失败或出现不可信状态时投递告警
func (h *Handler) alertOnGroupedFailure(r *http.Request, result *domain.GroupedResult) {
	failedGroups := make([]string, 0)
	unrestored := make([]string, 0)
	for i := range result.Results {
		g := &result.Results[i]
		if g.Status != domain.ResultStatusFailed {
			continue
		}
		failedGroups = append(failedGroups, g.GroupID)
		if g.Atomic && !g.RolledBack {
			unrestored = append(unrestored, g.GroupID)
		}
	}

	if result.Summary == domain.SummaryFailed {
		h.notifier.Publish(&domain.AlertMessage{
			Type:      domain.AlertTypeBulkUpdateFailed,
			RequestID: result.RequestID,
			Data: domain.BulkFailureAlertData{
				Summary:      result.Summary,
				Path:         r.URL.Path,
				FailedGroups: failedGroups,
				Unrestored:   unrestored,
			},
		})
	}

	if len(unrestored) > 0 {
		h.notifier.Publish(&domain.AlertMessage{
			Type:      domain.AlertTypeUnrestoredState,
			RequestID: result.RequestID,
			Data: domain.BulkFailureAlertData{
				Summary:      result.Summary,
				Path:         r.URL.Path,
				FailedGroups: failedGroups,
				Unrestored:   unrestored,
			},
		})
	}
}

func (h *Handler) alertOnFlatFailure(r *http.Request, result *domain.FlatResult) {
	failed := make([]string, 0)
	for i := range result.Results {
		if result.Results[i].Status == domain.ResultStatusFailed {
			failed = append(failed, result.Results[i].OccurrenceID)
		}
	}
	h.notifier.Publish(&domain.AlertMessage{
		Type:      domain.AlertTypeBulkUpdateFailed,
		RequestID: result.RequestID,
		Data: domain.BulkFailureAlertData{
			Summary:      result.Summary,
			Path:         r.URL.Path,
			FailedGroups: failed,
		},
	})
}
