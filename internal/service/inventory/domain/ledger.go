// internal/service/inventory/domain/ledger.go
package domain

import (
	"sort"
	"time"
)

// ReservedStock 是一次下单实际扣减的库存账本，按 OrderID 唯一。
// 它存在当且仅当该订单的预占尚未被补偿流程对账。
type ReservedStock struct {
	OrderID   string
	UserID    string
	Items     []ReservedStockItem
	CreatedAt time.Time
}

type ReservedStockItem struct {
	ProductID string
	Qty       int
}

// NewReservedStock 由实际扣减量构造账本，数量为 0 的商品不入账，按商品 ID 排序。
func NewReservedStock(orderID, userID string, taken map[string]int, now time.Time) *ReservedStock {
	items := make([]ReservedStockItem, 0, len(taken))
	for id, qty := range taken {
		if qty > 0 {
			items = append(items, ReservedStockItem{ProductID: id, Qty: qty})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return &ReservedStock{OrderID: orderID, UserID: userID, Items: items, CreatedAt: now}
}

func (r *ReservedStock) TotalQty() int {
	n := 0
	for _, it := range r.Items {
		n += it.Qty
	}
	return n
}

// ReconcileResult 记录补偿事件被如何处理。
type ReconcileResult string

const (
	ReconcileRestored ReconcileResult = "restored" // 下单失败，库存已回补
	ReconcileCleared  ReconcileResult = "cleared"  // 下单成功，购物车已清空
	ReconcileSkipped  ReconcileResult = "skipped"  // 账本不存在：重复投递或非本实例预占
)
