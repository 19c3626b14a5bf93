package port

import "context"

// IdempotencyGuard 防止同一个 Idempotency-Key 重复下单。
type IdempotencyGuard interface {
	// Claim 尝试占用 key。已被占用时返回 claimed=false 以及占用者的 orderID。
	Claim(ctx context.Context, key, orderID string) (owner string, claimed bool, err error)
	// Release 释放 key，下单失败后允许客户端用同一个 key 重试。
	Release(ctx context.Context, key string) error
}
