package roster

import (
	"context"
	"encoding/json"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

// Client 是上游排班系统的抽象。
// UpdateShift 返回的是已经过 UnwrapShift 规范化的原始响应，
// 因为上游可能只回显部分字段，由调用方负责把回显合并到出站载荷上。
type Client interface {
	GetShiftByID(ctx context.Context, occurrenceID string) (*domain.Shift, error)
	UpdateShift(ctx context.Context, occurrenceID string, outbound *domain.Shift) (json.RawMessage, error)
	GetCalendarShifts(ctx context.Context, dateISO string) ([]*domain.Shift, error)
	GetUsersByIDs(ctx context.Context, ids []int64) ([]*domain.User, error)
}
