// internal/service/order/domain/event.go
package domain

import "github.com/shopspring/decimal"

// ReservedLine 是库存服务返回的单行预占结果，也是订单金额的唯一来源。
type ReservedLine struct {
	ProductID    string
	Name         string
	RequestedQty int
	ActualQty    int
	AvailableQty int
	UnitPrice    decimal.Decimal
}

// Short 表示该行未按请求数量满足。
func (l ReservedLine) Short() bool { return l.ActualQty < l.RequestedQty }

// Reservation 是一次预占调用的结果。
type Reservation struct {
	FullyFulfilled bool
	Message        string
	Lines          []ReservedLine
}

// ReservedAny 表示至少有一行拿到了库存。
func (r *Reservation) ReservedAny() bool {
	for _, l := range r.Lines {
		if l.ActualQty > 0 {
			return true
		}
	}
	return false
}
