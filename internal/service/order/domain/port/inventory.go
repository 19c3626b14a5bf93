package port

import (
	"context"

	"github.com/wangyingjie930/fulfillment/internal/service/order/domain"
)

// StockReserver 是库存服务的出站端口。
type StockReserver interface {
	// Reserve 为 userID 的购物车预占库存，orderID 是账本主键。
	// 超时或传输错误时结果未知，调用方必须假设库存可能已被扣减。
	Reserve(ctx context.Context, orderID, userID string) (*domain.Reservation, error)
}
