package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "idempotency_"

// RedisStore 把幂等记录放在 redis 中，多实例部署时共享。
// SetNX 充当原子的比较并写入，是防止并发重复执行的唯一串行化点。
type RedisStore struct {
	client       *redis.Client
	pendingTTL   time.Duration
	completedTTL time.Duration
}

func NewRedisStore(client *redis.Client, pendingTTL, completedTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:       client,
		pendingTTL:   pendingTTL,
		completedTTL: completedTTL,
	}
}

func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string) (*ReserveResult, error) {
	pending, err := json.Marshal(record{State: statePending, Fingerprint: fingerprint})
	if err != nil {
		return nil, err
	}

	set, err := s.client.SetNX(ctx, redisKeyPrefix+key, pending, s.pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("预定幂等键失败: %w", err)
	}
	if set {
		return &ReserveResult{Status: StatusReserved}, nil
	}

	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// 在 SetNX 与 Get 之间恰好过期，让调用方重试一次最简单
		return &ReserveResult{Status: StatusInProgress}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取幂等记录失败: %w", err)
	}

	existing := record{}
	if err := json.Unmarshal([]byte(raw), &existing); err != nil {
		return nil, fmt.Errorf("幂等记录无法解析: %w", err)
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

func (s *RedisStore) Complete(ctx context.Context, key, fingerprint string, statusCode int, payload json.RawMessage) error {
	completed, err := json.Marshal(record{
		State:       stateCompleted,
		Fingerprint: fingerprint,
		StatusCode:  statusCode,
		Payload:     payload,
	})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, completed, s.completedTTL).Err(); err != nil {
		return fmt.Errorf("写入幂等记录失败: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("撤销幂等预定失败: %w", err)
	}
	return nil
}
