package saga

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/wangyingjie930/fulfillment/internal/api/events"
	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
	"github.com/wangyingjie930/fulfillment/internal/service/order/domain"
	"github.com/wangyingjie930/fulfillment/internal/service/order/domain/port"
)

// OrderContext 在 Saga 流程中传递上下文数据。
type OrderContext struct {
	Ctx    context.Context
	Tracer trace.Tracer
	Now    func() time.Time

	OrderID         string
	UserID          string
	ShippingAddress string

	// 依赖出站端口
	Reserver       port.StockReserver
	Outcome        port.OutcomePublisher
	ReserveTimeout time.Duration

	// 各步骤的产出
	Reservation *domain.Reservation
	Order       *domain.Order

	compensations []func(ctx context.Context) error
	compLock      sync.Mutex
}

// AddCompensation 注册补偿操作，后注册的先执行。
func (c *OrderContext) AddCompensation(comp func(ctx context.Context) error) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context) error{comp}, c.compensations...)
}

// TriggerCompensation 执行全部补偿并清空列表，返回合并后的错误。
func (c *OrderContext) TriggerCompensation(ctx context.Context) error {
	c.compLock.Lock()
	comps := c.compensations
	c.compensations = nil
	c.compLock.Unlock()

	logger.Ctx(ctx).Info().Str("order_id", c.OrderID).Int("count", len(comps)).Msg("executing compensation functions")
	var errs []error
	for _, comp := range comps {
		if err := comp(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishOutcome 发布本次下单尝试的结果事件。
func (c *OrderContext) PublishOutcome(ctx context.Context, success bool) error {
	return c.Outcome.PublishOutcome(ctx, events.OrderOutcome{OrderID: c.OrderID, UserID: c.UserID, Success: success})
}

type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
