package audit

import (
	"context"
	"encoding/json"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

// QueryPage 是审计日志的一页，NextCursor 为空表示没有更多
type QueryPage struct {
	Entries    []domain.AuditEntry `json:"entries"`
	NextCursor string              `json:"nextCursor,omitempty"`
}

// Store 是审计日志的存取抽象：只追加写入与最新在前的游标分页查询
type Store interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
	Query(ctx context.Context, limit int, cursor string) (*QueryPage, error)
}

// DeriveOutcome 从响应状态码与响应体推导本次请求的业务结果。
// 非 200 一律视为失败；200 时再看逐项结果里成功与失败是否混杂。
func DeriveOutcome(statusCode int, payload json.RawMessage) string {
	if statusCode != 200 {
		return domain.AuditOutcomeFailure
	}

	var body struct {
		Results []struct {
			Status string `json:"status"`
		} `json:"results"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Results == nil {
		return domain.AuditOutcomeSuccess
	}

	hasSuccess, hasFailure := false, false
	for _, r := range body.Results {
		if r.Status == domain.ResultStatusSuccess {
			hasSuccess = true
		} else {
			hasFailure = true
		}
	}

	switch {
	case hasSuccess && hasFailure:
		return domain.AuditOutcomePartial
	case hasFailure:
		return domain.AuditOutcomeFailure
	default:
		return domain.AuditOutcomeSuccess
	}
}
