package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"github.com/wangyingjie930/fulfillment/internal/service/order/domain"
)

// CreateOrderHandler 负责持久化订单。
type CreateOrderHandler struct {
	NextHandler
	repo domain.OrderRepository
}

func NewCreateOrderHandler(repo domain.OrderRepository) *CreateOrderHandler {
	return &CreateOrderHandler{repo: repo}
}

func (h *CreateOrderHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CreateOrder")
	defer span.End()

	if err := h.repo.Save(ctx, orderCtx.Order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save pending order")
		return fmt.Errorf("failed to save pending order: %w", err)
	}
	span.AddEvent("Pending order saved to DB.")

	return h.executeNext(orderCtx)
}
