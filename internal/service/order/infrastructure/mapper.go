package infrastructure

import "github.com/wangyingjie930/fulfillment/internal/service/order/domain"

func ToOrderModel(o *domain.Order) *OrderModel {
	m := &OrderModel{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.State),
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, it := range o.Items {
		m.Items = append(m.Items, OrderItemModel{
			OrderID:    o.ID,
			ProductID:  it.ProductID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		})
	}
	return m
}

func ToDomainOrder(m *OrderModel) *domain.Order {
	o := &domain.Order{
		ID:              m.ID,
		UserID:          m.UserID,
		State:           domain.State(m.Status),
		TotalAmount:     m.TotalAmount,
		ShippingAddress: m.ShippingAddress,
		Items:           make([]domain.OrderItem, 0, len(m.Items)),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	for _, it := range m.Items {
		o.Items = append(o.Items, domain.OrderItem{
			ProductID:  it.ProductID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		})
	}
	return o
}
