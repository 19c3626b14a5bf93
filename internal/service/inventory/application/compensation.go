// internal/service/inventory/application/compensation.go
package application

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wangyingjie930/fulfillment/internal/api/events"
	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
)

// CompensationService 根据订单结果对账本做最终处理。
type CompensationService struct {
	store   domain.StockStore
	tracer  trace.Tracer
	metrics *Metrics
}

func NewCompensationService(store domain.StockStore, tracer trace.Tracer, metrics *Metrics) *CompensationService {
	return &CompensationService{store: store, tracer: tracer, metrics: metrics}
}

// Reconcile 在单个事务内处理一条结果事件：
// 账本不存在则跳过；失败则按账本回补库存；成功则清空购物车；最后删除账本。
// 返回错误时调用方不得确认该消息。
func (s *CompensationService) Reconcile(ctx context.Context, ev events.OrderOutcome) (domain.ReconcileResult, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.Reconcile", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", ev.OrderID),
		attribute.String("user.id", ev.UserID),
		attribute.Bool("order.success", ev.Success),
	)

	var result domain.ReconcileResult
	err := s.store.WithinTx(ctx, func(tx domain.StockTx) error {
		ledger, err := tx.GetReservationLedger(ctx, ev.OrderID)
		if errors.Is(err, domain.ErrLedgerNotFound) {
			result = domain.ReconcileSkipped
			return nil
		}
		if err != nil {
			return err
		}

		if ev.Success {
			if err := s.clearCart(ctx, tx, ev, ledger); err != nil {
				return err
			}
			result = domain.ReconcileCleared
		} else {
			if err := s.restoreStock(ctx, tx, ledger); err != nil {
				return err
			}
			result = domain.ReconcileRestored
		}
		return tx.DeleteReservationLedger(ctx, ev.OrderID)
	})
	if err != nil {
		s.metrics.Compensations.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", ev.OrderID).
			Bool("success", ev.Success).
			Msg("compensation failed, event will be redelivered")
		return "", err
	}

	s.metrics.Compensations.WithLabelValues(string(result)).Inc()
	span.SetAttributes(attribute.String("reconcile.result", string(result)))
	logger.Ctx(ctx).Info().
		Str("order_id", ev.OrderID).
		Str("user_id", ev.UserID).
		Str("result", string(result)).
		Msg("order outcome reconciled")
	return result, nil
}

func (s *CompensationService) restoreStock(ctx context.Context, tx domain.StockTx, ledger *domain.ReservedStock) error {
	for _, it := range ledger.Items {
		err := tx.IncrementInventory(ctx, it.ProductID, it.Qty)
		if errors.Is(err, domain.ErrProductNotFound) {
			// 商品已被删除，无处回补；记录后继续，否则该消息会永远阻塞分区
			logger.Ctx(ctx).Error().
				Str("order_id", ledger.OrderID).
				Str("product_id", it.ProductID).
				Int("qty", it.Qty).
				Msg("CRITICAL: ledger references a deleted product, stock cannot be restored")
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *CompensationService) clearCart(ctx context.Context, tx domain.StockTx, ev events.OrderOutcome, ledger *domain.ReservedStock) error {
	userID := ev.UserID
	if userID == "" {
		userID = ledger.UserID
	}
	cart, err := tx.GetCart(ctx, userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return tx.DeleteCartItems(ctx, cart.ID)
}
