// internal/service/order/application/dto.go
package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wangyingjie930/fulfillment/internal/service/order/domain"
)

const (
	StatusFulfilled          = "fulfilled"
	StatusPartialFulfillment = "partial_fulfillment"

	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// CreateOrderRequest 是创建订单用例的输入数据
type CreateOrderRequest struct {
	UserID          string
	ShippingAddress string
	IdempotencyKey  string
}

// CreateOrderResponse 是创建订单用例的输出。
// 失败时如果已经拿到预占结果，Products 仍会返回，方便调用方展示缺货情况。
type CreateOrderResponse struct {
	OrderID  string       `json:"orderId"`
	Status   string       `json:"status,omitempty"`
	Message  string       `json:"message,omitempty"`
	Order    *OrderDTO    `json:"order,omitempty"`
	Products []LineResult `json:"products,omitempty"`
}

// LineResult 是单个购物车行的预占情况
type LineResult struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	RequestedQty int             `json:"requestedQty"`
	ActualQty    int             `json:"actualQty"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Short        bool            `json:"short"`
}

type OrderDTO struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Status          domain.State    `json:"status"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	Items           []OrderItemDTO  `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type OrderItemDTO struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// ListOrdersQuery 中 Page/Limit 为 0 时使用默认值
type ListOrdersQuery struct {
	UserID string
	Page   int
	Limit  int
}

type ListOrdersResult struct {
	Orders     []OrderDTO `json:"orders"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalCount int64      `json:"totalCount"`
	TotalPages int64      `json:"totalPages"`
}

func toOrderDTO(o *domain.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.State,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		Items:           make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, it := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO(it))
	}
	return dto
}

func toLineResults(res *domain.Reservation) []LineResult {
	if res == nil {
		return nil
	}
	out := make([]LineResult, 0, len(res.Lines))
	for _, l := range res.Lines {
		out = append(out, LineResult{
			ProductID:    l.ProductID,
			Name:         l.Name,
			RequestedQty: l.RequestedQty,
			ActualQty:    l.ActualQty,
			UnitPrice:    l.UnitPrice,
			Short:        l.Short(),
		})
	}
	return out
}
