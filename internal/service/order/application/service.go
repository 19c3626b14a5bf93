// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
	"github.com/wangyingjie930/fulfillment/internal/service/order/application/saga"
	"github.com/wangyingjie930/fulfillment/internal/service/order/domain"
	"github.com/wangyingjie930/fulfillment/internal/service/order/domain/port"
)

const publishTimeout = 10 * time.Second

// OrderApplicationService 只关注业务流程编排。
type OrderApplicationService struct {
	orderRepo      domain.OrderRepository
	reserver       port.StockReserver
	outcome        port.OutcomePublisher
	idempotency    port.IdempotencyGuard // 可为空
	reserveTimeout time.Duration
	tracer         trace.Tracer
	metrics        *Metrics

	newID func() string
	now   func() time.Time
}

func NewOrderApplicationService(orderRepo domain.OrderRepository, reserver port.StockReserver, outcome port.OutcomePublisher, idempotency port.IdempotencyGuard, reserveTimeout time.Duration, tracer trace.Tracer, metrics *Metrics) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo: orderRepo, reserver: reserver, outcome: outcome,
		idempotency: idempotency, reserveTimeout: reserveTimeout,
		tracer: tracer, metrics: metrics,
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
}

// CreateOrder 预占库存、计算金额并落库。无论成功与否，每次尝试都恰好发布一条结果事件。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()

	if req.UserID == "" {
		return nil, domain.ErrMissingUser
	}

	// 1. 先生成订单号，它同时是库存账本的主键
	orderID := s.newID()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("user.id", req.UserID))
	log := logger.Ctx(ctx).With().Str("order_id", orderID).Str("user_id", req.UserID).Logger()

	idemKey := ""
	if req.IdempotencyKey != "" && s.idempotency != nil {
		idemKey = req.UserID + ":" + req.IdempotencyKey
		owner, claimed, err := s.idempotency.Claim(ctx, idemKey, orderID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "idempotency check failed", err)
		}
		if !claimed {
			s.metrics.Creations.WithLabelValues("duplicate").Inc()
			log.Info().Str("owner", owner).Msg("duplicate order request rejected")
			return &CreateOrderResponse{OrderID: owner}, domain.ErrDuplicateRequest
		}
	}

	orderCtx := &saga.OrderContext{
		Ctx:             ctx,
		Tracer:          s.tracer,
		Now:             s.now,
		OrderID:         orderID,
		UserID:          req.UserID,
		ShippingAddress: req.ShippingAddress,
		Reserver:        s.reserver,
		Outcome:         s.outcome,
		ReserveTimeout:  s.reserveTimeout,
	}

	chainErr := s.buildChain().Handle(orderCtx)

	// 结果事件不能因为请求被取消而丢失
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if chainErr != nil {
		span.RecordError(chainErr)
		span.SetStatus(codes.Error, "order creation failed")
		log.Warn().Err(chainErr).Msg("order creation failed, publishing failure outcome")

		if err := orderCtx.TriggerCompensation(publishCtx); err != nil {
			s.metrics.PublishFailures.Inc()
			log.Error().Err(err).Msg("🚨 CRITICAL: failure outcome not published, reservation stays locked")
		}
		if idemKey != "" {
			if err := s.idempotency.Release(publishCtx, idemKey); err != nil {
				log.Warn().Err(err).Msg("failed to release idempotency key")
			}
		}

		result := "failed"
		if errors.Is(chainErr, domain.ErrNothingReserved) {
			result = "nothing_reserved"
		}
		s.metrics.Creations.WithLabelValues(result).Inc()
		return &CreateOrderResponse{OrderID: orderID, Products: toLineResults(orderCtx.Reservation)}, chainErr
	}

	if err := orderCtx.PublishOutcome(publishCtx, true); err != nil {
		// 订单已落库，不能再回滚；账本会被监控发现
		s.metrics.PublishFailures.Inc()
		log.Error().Err(err).Msg("🚨 CRITICAL: success outcome not published, cart will not be cleared")
	}

	res := orderCtx.Reservation
	resp := &CreateOrderResponse{
		OrderID:  orderID,
		Status:   StatusFulfilled,
		Message:  res.Message,
		Order:    toOrderDTO(orderCtx.Order),
		Products: toLineResults(res),
	}
	if !res.FullyFulfilled {
		resp.Status = StatusPartialFulfillment
	}
	s.metrics.Creations.WithLabelValues(resp.Status).Inc()
	span.SetAttributes(attribute.String("order.status", resp.Status))
	log.Info().Str("status", resp.Status).Str("total", orderCtx.Order.TotalAmount.StringFixed(2)).Msg("order created")
	return resp, nil
}

func (s *OrderApplicationService) GetOrder(ctx context.Context, id string) (*OrderDTO, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toOrderDTO(order), nil
}

// ListOrders 按用户分页查询订单。
func (s *OrderApplicationService) ListOrders(ctx context.Context, q ListOrdersQuery) (*ListOrdersResult, error) {
	if q.UserID == "" {
		return nil, domain.ErrMissingUser
	}
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Page < 1 {
		return nil, apperr.InvalidArgument("page must be >= 1")
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return nil, apperr.InvalidArgument("limit must be between 1 and 100")
	}

	orders, total, err := s.orderRepo.ListByUser(ctx, q.UserID, (q.Page-1)*q.Limit, q.Limit)
	if err != nil {
		return nil, err
	}
	out := &ListOrdersResult{
		Orders:     make([]OrderDTO, 0, len(orders)),
		Page:       q.Page,
		Limit:      q.Limit,
		TotalCount: total,
		TotalPages: (total + int64(q.Limit) - 1) / int64(q.Limit),
	}
	for i := range orders {
		out.Orders = append(out.Orders, *toOrderDTO(&orders[i]))
	}
	return out, nil
}

// UpdateOrderStatus 校验状态值及流转是否合法后更新。
func (s *OrderApplicationService) UpdateOrderStatus(ctx context.Context, id, status string) (*OrderDTO, error) {
	next, err := domain.ParseState(status)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.UpdateState(ctx, id, func(o *domain.Order) error {
		return o.TransitionTo(next, s.now())
	})
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("order_id", id).Str("status", string(next)).Msg("order status updated")
	return toOrderDTO(order), nil
}

func (s *OrderApplicationService) buildChain() saga.Handler {
	chain := new(saga.InventoryHandler)
	chain.
		SetNext(new(saga.PricingHandler)).
		SetNext(saga.NewCreateOrderHandler(s.orderRepo))
	return chain
}
