package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

// Recorder 异步记录审计条目：写入在独立的 goroutine 中进行，
// 带自己的超时，失败只记日志，绝不影响触发它的请求
type Recorder struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration
}

func NewRecorder(store Store, logger *slog.Logger, timeout time.Duration) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logger,
		timeout: timeout,
	}
}

// Record 发起一次不阻塞调用方的审计写入
func (r *Recorder) Record(entry *domain.AuditEntry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.store.Record(ctx, entry); err != nil {
			r.logger.Error("审计记录写入失败",
				slog.String("requestId", entry.RequestID),
				slog.String("path", entry.Path),
				slog.String("error", err.Error()),
			)
		}
	}()
}
