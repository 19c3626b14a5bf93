// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Save 创建订单及其明细，ID 重复时返回 ErrOrderAlreadyExists。
	Save(ctx context.Context, order *Order) error

	// FindByID 返回订单及其明细，不存在时返回 ErrOrderNotFound。
	FindByID(ctx context.Context, id string) (*Order, error)

	// ListByUser 按创建时间倒序分页，同时返回该用户的订单总数。
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]Order, int64, error)

	// UpdateState 在一个事务里读取、校验并更新状态，返回更新后的订单。
	UpdateState(ctx context.Context, id string, mutate func(*Order) error) (*Order, error)
}
