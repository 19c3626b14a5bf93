package saga

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
)

// InventoryHandler 负责库存预占步骤。
type InventoryHandler struct {
	NextHandler
}

func (h *InventoryHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.InventoryReserve")
	defer span.End()

	// 调用之前就注册补偿：超时或传输错误时库存可能已经被扣减，
	// 只能靠 success=false 的结果事件让库存服务按账本回补。
	orderCtx.AddCompensation(func(compCtx context.Context) error {
		compCtx, compSpan := orderCtx.Tracer.Start(compCtx, "saga.compensation.PublishFailure")
		defer compSpan.End()
		if err := orderCtx.PublishOutcome(compCtx, false); err != nil {
			compSpan.RecordError(err)
			compSpan.SetStatus(codes.Error, "publish failure outcome")
			return err
		}
		return nil
	})

	reserveCtx, cancel := context.WithTimeout(ctx, orderCtx.ReserveTimeout)
	defer cancel()

	res, err := orderCtx.Reserver.Reserve(reserveCtx, orderCtx.OrderID, orderCtx.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Inventory reservation failed")
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", orderCtx.OrderID).Msg("inventory reservation failed")
		return err
	}
	orderCtx.Reservation = res

	span.SetAttributes(
		attribute.Bool("reservation.fully_fulfilled", res.FullyFulfilled),
		attribute.Int("reservation.lines", len(res.Lines)),
	)
	span.AddEvent("Inventory reserved")

	return h.executeNext(orderCtx)
}
