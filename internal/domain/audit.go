package domain

import (
	"encoding/json"
	"time"
)

// 审计记录的业务结果
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomePartial = "partial"
	AuditOutcomeFailure = "failure"
)

// AuditEntry 是一次写请求的只追加审计记录，创建后不再修改
type AuditEntry struct {
	ID             string          `json:"id,omitempty"`
	RequestID      string          `json:"requestId"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	Method         string          `json:"method"`
	Path           string          `json:"path"`
	Body           json.RawMessage `json:"body,omitempty"`
	StatusCode     int             `json:"statusCode"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	DurationMs     int64           `json:"durationMs"`
	Outcome        string          `json:"outcome"`
	CreatedAt      time.Time       `json:"timestamp"`
}
