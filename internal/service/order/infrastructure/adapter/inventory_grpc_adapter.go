package adapter

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/wangyingjie930/fulfillment/internal/api/inventory"
	"github.com/wangyingjie930/fulfillment/internal/service/order/domain"
)

// Reserver 是 inventory.Client 上用到的方法
type Reserver interface {
	CheckAndReserveInventory(ctx context.Context, req *inventory.ReserveRequest) (*inventory.ReserveResponse, error)
}

// InventoryGRPCAdapter 实现了 port.StockReserver 接口。
type InventoryGRPCAdapter struct {
	client Reserver
}

func NewInventoryGRPCAdapter(client Reserver) *InventoryGRPCAdapter {
	return &InventoryGRPCAdapter{client: client}
}

// Reserve 调用库存服务的预占 RPC，错误分类由 inventory.Client 还原。
func (a *InventoryGRPCAdapter) Reserve(ctx context.Context, orderID, userID string) (*domain.Reservation, error) {
	resp, err := a.client.CheckAndReserveInventory(ctx, &inventory.ReserveRequest{OrderID: orderID, UserID: userID})
	if err != nil {
		return nil, err
	}
	res := &domain.Reservation{
		FullyFulfilled: resp.FullyFulfilled(),
		Message:        resp.Message,
		Lines:          make([]domain.ReservedLine, 0, len(resp.Products)),
	}
	for _, p := range resp.Products {
		res.Lines = append(res.Lines, domain.ReservedLine{
			ProductID:    p.ID,
			Name:         p.Name,
			RequestedQty: p.RequestedQty,
			ActualQty:    p.ActualQty,
			AvailableQty: p.AvailableQty,
			UnitPrice:    decimal.NewFromFloat(p.Price),
		})
	}
	return res, nil
}
