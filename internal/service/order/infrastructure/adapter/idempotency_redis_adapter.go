package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "order:idem:"

// IdempotencyRedisAdapter 是 port.IdempotencyGuard 的 Redis 实现。
// key 以 SET NX 占用，值为首次请求生成的 orderId。
type IdempotencyRedisAdapter struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewIdempotencyRedisAdapter(rdb redis.Cmdable, ttl time.Duration) *IdempotencyRedisAdapter {
	return &IdempotencyRedisAdapter{rdb: rdb, ttl: ttl}
}

func (a *IdempotencyRedisAdapter) Claim(ctx context.Context, key, orderID string) (string, bool, error) {
	redisKey := idempotencyKeyPrefix + key
	ok, err := a.rdb.SetNX(ctx, redisKey, orderID, a.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return orderID, true, nil
	}

	owner, err := a.rdb.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// 刚好过期，再抢一次
		return a.Claim(ctx, key, orderID)
	}
	if err != nil {
		return "", false, fmt.Errorf("read idempotency key owner: %w", err)
	}
	return owner, false, nil
}

func (a *IdempotencyRedisAdapter) Release(ctx context.Context, key string) error {
	if err := a.rdb.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
