package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wangyingjie930/fulfillment/internal/service/order/domain"
)

// PricingHandler 用库存服务返回的单价和实际数量构建订单，不信任客户端价格。
type PricingHandler struct {
	NextHandler
}

func (h *PricingHandler) Handle(orderCtx *OrderContext) error {
	_, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Pricing")
	defer span.End()

	order, err := domain.NewOrder(orderCtx.OrderID, orderCtx.UserID, orderCtx.ShippingAddress, orderCtx.Reservation, orderCtx.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order could not be priced")
		return err
	}
	orderCtx.Order = order

	span.SetAttributes(
		attribute.String("order.total_amount", order.TotalAmount.StringFixed(2)),
		attribute.Int("order.items", len(order.Items)),
	)
	return h.executeNext(orderCtx)
}
