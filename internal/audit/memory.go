package audit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

// MemoryStore 把审计记录保存在进程内，开发与测试用
type MemoryStore struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(_ context.Context, entry *domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.ID = strconv.Itoa(len(s.entries) + 1)
	s.entries = append(s.entries, stored)
	return nil
}

// Query 最新在前分页，游标是排序后的起始下标
func (s *MemoryStore) Query(_ context.Context, limit int, cursor string) (*QueryPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 20
	}

	newestFirst := make([]domain.AuditEntry, len(s.entries))
	for i, e := range s.entries {
		newestFirst[len(s.entries)-1-i] = e
	}

	start := 0
	if cursor != "" {
		if idx, err := strconv.Atoi(cursor); err == nil && idx >= 0 && idx < len(newestFirst) {
			start = idx
		}
	}

	end := start + limit
	if end > len(newestFirst) {
		end = len(newestFirst)
	}

	page := &QueryPage{Entries: newestFirst[start:end]}
	if end < len(newestFirst) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}
