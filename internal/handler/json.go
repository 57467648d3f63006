package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误",
		"requestId", requestIDFrom(r),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
}

// readBody 读出并缓存请求体，幂等指纹与审计记录都需要原始字节
func (h *Handler) readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

// writeRawJSON 原样写出已经序列化好的响应体，幂等重放时使用
func (h *Handler) writeRawJSON(w http.ResponseWriter, r *http.Request, status int, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(payload); err != nil {
		h.logInternalServerError(r, err)
	}
}

// errorBody 是所有错误响应的统一形状
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorResponse struct {
	RequestID string    `json:"requestId"`
	Summary   string    `json:"summary"`
	Error     errorBody `json:"error"`
}

func (h *Handler) errorJSON(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	h.writeJSON(w, r, status, errorResponse{
		RequestID: requestIDFrom(r),
		Summary:   domain.SummaryFailed,
		Error: errorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// updateError 把 UpdateError 按它自带的状态码写出
func (h *Handler) updateError(w http.ResponseWriter, r *http.Request, err *domain.UpdateError) {
	status := err.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.errorJSON(w, r, status, err.Code, err.Message, err.Detail)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.errorJSON(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected internal error", nil)
}
