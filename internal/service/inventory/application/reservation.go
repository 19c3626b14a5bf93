// internal/service/inventory/application/reservation.go
package application

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wangyingjie930/fulfillment/internal/api/inventory"
	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
)

// ReservationService 在一个事务里完成：读购物车 -> 锁库存 -> 计算分配 -> 扣减 -> 写账本。
type ReservationService struct {
	store   domain.StockStore
	tracer  trace.Tracer
	metrics *Metrics
	now     func() time.Time
}

func NewReservationService(store domain.StockStore, tracer trace.Tracer, metrics *Metrics) *ReservationService {
	return &ReservationService{store: store, tracer: tracer, metrics: metrics, now: time.Now}
}

// Reserve 为 userID 的购物车预占库存，并以 orderID 记录账本。
// 库存不足不是错误，而是 FullyFulfilled=false 的结果。
func (s *ReservationService) Reserve(ctx context.Context, userID, orderID string) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.Reserve")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("user.id", userID))

	if userID == "" || orderID == "" {
		return nil, s.fail(ctx, span, domain.ErrMissingID)
	}

	start := time.Now()
	var res *domain.Reservation
	err := s.store.WithinTx(ctx, func(tx domain.StockTx) error {
		cart, err := tx.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return domain.ErrCartEmpty
		}

		stock, err := tx.GetInventoryByIDs(ctx, cart.ProductIDs())
		if err != nil {
			return err
		}
		r, err := domain.Allocate(cart.Items, stock)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(r.Taken))
		for id := range r.Taken {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if err := tx.DecrementInventory(ctx, id, r.Taken[id]); err != nil {
				return err
			}
		}

		if err := tx.CreateReservationLedger(ctx, domain.NewReservedStock(orderID, userID, r.Taken, s.now())); err != nil {
			return err
		}
		res = r
		return nil
	})
	s.metrics.ReservationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}

	res.OrderID = orderID
	res.UserID = userID
	status := inventory.StatusFulfilled
	if !res.FullyFulfilled {
		status = inventory.StatusPartialFulfillment
	}
	s.metrics.Reservations.WithLabelValues(status).Inc()
	span.SetAttributes(attribute.String("reservation.status", status))

	logger.Ctx(ctx).Info().
		Str("order_id", orderID).
		Str("user_id", userID).
		Str("status", status).
		Int("lines", len(res.Lines)).
		Msg("stock reserved")
	return res, nil
}

func (s *ReservationService) fail(ctx context.Context, span trace.Span, err error) error {
	s.metrics.Reservations.WithLabelValues("failed").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, "reservation failed")
	span.SetAttributes(attribute.String("error.kind", string(apperr.KindOf(err))))
	logger.Ctx(ctx).Warn().Err(err).Str("kind", string(apperr.KindOf(err))).Msg("reservation failed")
	return err
}
