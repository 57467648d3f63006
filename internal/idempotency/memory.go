package idempotency

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryRecord struct {
	record
	expiresAt time.Time
}

// MemoryStore 是进程内的幂等存储，过期记录在下次访问时惰性清除。
// 单实例部署下的默认后端。
type MemoryStore struct {
	mu           sync.Mutex
	records      map[string]*memoryRecord
	pendingTTL   time.Duration
	completedTTL time.Duration
	now          func() time.Time
}

func NewMemoryStore(pendingTTL, completedTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		records:      map[string]*memoryRecord{},
		pendingTTL:   pendingTTL,
		completedTTL: completedTTL,
		now:          time.Now,
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string) (*ReserveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[key]
	if ok && s.now().After(existing.expiresAt) {
		delete(s.records, key)
		ok = false
	}

	if !ok {
		s.records[key] = &memoryRecord{
			record:    record{State: statePending, Fingerprint: fingerprint},
			expiresAt: s.now().Add(s.pendingTTL),
		}
		return &ReserveResult{Status: StatusReserved}, nil
	}

	if existing.Fingerprint != fingerprint {
		return &ReserveResult{Status: StatusConflict}, nil
	}
	if existing.State == statePending {
		return &ReserveResult{Status: StatusInProgress}, nil
	}
	return &ReserveResult{
		Status:     StatusReplay,
		StatusCode: existing.StatusCode,
		Payload:    existing.Payload,
	}, nil
}

func (s *MemoryStore) Complete(_ context.Context, key, fingerprint string, statusCode int, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = &memoryRecord{
		record: record{
			State:       stateCompleted,
			Fingerprint: fingerprint,
			StatusCode:  statusCode,
			Payload:     append(json.RawMessage(nil), payload...),
		},
		expiresAt: s.now().Add(s.completedTTL),
	}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
