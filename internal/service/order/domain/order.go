// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 是订单聚合的根实体
type Order struct {
	ID              string
	UserID          string
	State           State
	TotalAmount     decimal.Decimal
	ShippingAddress string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem 只记录实际预占到的数量和库存服务给出的价格
type OrderItem struct {
	ProductID  string
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// NewOrder 用预占结果创建一个 PENDING 订单，金额完全由预占结果计算，
// actualQty 为 0 的行不落库。没有任何一行预占成功时返回 ErrNothingReserved。
func NewOrder(id, userID, shippingAddress string, res *Reservation, now time.Time) (*Order, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	o := &Order{
		ID:              id,
		UserID:          userID,
		State:           StatePending,
		TotalAmount:     decimal.Zero,
		ShippingAddress: shippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, l := range res.Lines {
		if l.ActualQty <= 0 {
			continue
		}
		line := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.ActualQty)))
		o.Items = append(o.Items, OrderItem{
			ProductID:  l.ProductID,
			Name:       l.Name,
			Quantity:   l.ActualQty,
			UnitPrice:  l.UnitPrice,
			TotalPrice: line,
		})
		o.TotalAmount = o.TotalAmount.Add(line)
	}
	if len(o.Items) == 0 {
		return nil, ErrNothingReserved
	}
	return o, nil
}

// TransitionTo 只负责状态流转，不负责调用外部服务
func (o *Order) TransitionTo(next State, now time.Time) error {
	if o.State == next {
		return nil
	}
	if !o.State.CanTransitionTo(next) {
		return ErrIllegalTransition
	}
	o.State = next
	o.UpdatedAt = now
	return nil
}
