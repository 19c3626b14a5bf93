// internal/service/inventory/domain/reservation.go
package domain

import (
	"fmt"

	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
)

// ReservationLine 是购物车中一行的分配结果。
// AvailableQty 为本次预占完成后该商品的剩余库存。
type ReservationLine struct {
	ProductID    string
	Name         string
	Price        float64
	RequestedQty int
	ActualQty    int
	AvailableQty int
}

func (l ReservationLine) Short() bool { return l.ActualQty < l.RequestedQty }

// Reservation 是一次预占的完整结果。
type Reservation struct {
	OrderID        string
	UserID         string
	Lines          []ReservationLine
	FullyFulfilled bool
	// Taken 是每个商品实际扣减的总量，用于扣减库存和写账本。
	Taken map[string]int
}

// ReservedAny 表示至少有一行拿到了库存。
func (r *Reservation) ReservedAny() bool {
	for _, qty := range r.Taken {
		if qty > 0 {
			return true
		}
	}
	return false
}

// Allocate 按购物车顺序计算 min(请求量, 剩余库存)。
// 同一商品出现在多行时共享剩余库存；请求量不大于 0 的行不占库存。
// stock 必须包含购物车引用的全部商品，否则返回 ErrUnknownProduct。
func Allocate(items []CartItem, stock map[string]InventoryItem) (*Reservation, error) {
	remaining := make(map[string]int, len(stock))
	for _, it := range items {
		inv, ok := stock[it.ProductID]
		if !ok {
			return nil, apperr.Wrap(apperr.KindInvalidArgument, ErrUnknownProduct.Msg, fmt.Errorf("product %s does not exist", it.ProductID))
		}
		remaining[it.ProductID] = inv.AvailableQty
	}

	res := &Reservation{
		Lines:          make([]ReservationLine, 0, len(items)),
		FullyFulfilled: true,
		Taken:          make(map[string]int, len(remaining)),
	}
	for _, it := range items {
		inv := stock[it.ProductID]
		requested := it.Qty
		if requested < 0 {
			requested = 0
		}
		actual := min(requested, remaining[it.ProductID])
		remaining[it.ProductID] -= actual
		res.Taken[it.ProductID] += actual
		if actual < requested {
			res.FullyFulfilled = false
		}
		res.Lines = append(res.Lines, ReservationLine{
			ProductID:    it.ProductID,
			Name:         inv.Name,
			Price:        inv.Price,
			RequestedQty: it.Qty,
			ActualQty:    actual,
		})
	}
	for i := range res.Lines {
		res.Lines[i].AvailableQty = remaining[res.Lines[i].ProductID]
	}
	return res, nil
}
