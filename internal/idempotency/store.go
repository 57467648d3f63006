package idempotency

import (
	"context"
	"encoding/json"
)

// Reserve 的四种去向
const (
	StatusReserved   = "reserved"    // 键首次出现，调用方可以执行并在结束后 Complete
	StatusReplay     = "replay"      // 同键同指纹且已完成，直接重放存储的响应
	StatusConflict   = "conflict"    // 同键不同指纹，必须拒绝且不得执行
	StatusInProgress = "in_progress" // 同键同指纹的请求正在执行，必须拒绝且不得执行
)

// ReserveResult 是一次预定的结果，StatusReplay 时携带当初存下的响应
type ReserveResult struct {
	Status     string
	StatusCode int
	Payload    json.RawMessage
}

// Store 是幂等记录的存取抽象。
// Reserve 是防止重复执行的唯一串行化点，实现必须用
// 原子的比较并写入，不能先读后写。
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string) (*ReserveResult, error)
	Complete(ctx context.Context, key, fingerprint string, statusCode int, payload json.RawMessage) error
	// Release 在执行中途出错且没有产生可重放的响应时撤掉预定
	Release(ctx context.Context, key string) error
}

// record 是存储里的一条幂等记录的线格式
type record struct {
	State       string          `json:"state"` // PENDING 或 COMPLETED
	Fingerprint string          `json:"fingerprint"`
	StatusCode  int             `json:"statusCode,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

const (
	statePending   = "PENDING"
	stateCompleted = "COMPLETED"
)
