package application

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/wangyingjie930/fulfillment/internal/api/events"
	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/infrastructure"
)

type SagaSuite struct {
	suite.Suite
	ctx         context.Context
	store       *infrastructure.MemoryStockStore
	metrics     *Metrics
	reservation *ReservationService
	compensator *CompensationService
}

func TestSagaSuite(t *testing.T) {
	suite.Run(t, new(SagaSuite))
}

func (s *SagaSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = infrastructure.NewMemoryStockStore()
	s.metrics = NewMetrics(prometheus.NewRegistry())
	tracer := noop.NewTracerProvider().Tracer("test")
	s.reservation = NewReservationService(s.store, tracer, s.metrics)
	s.compensator = NewCompensationService(s.store, tracer, s.metrics)
}

func (s *SagaSuite) stock(id string) int {
	p, err := s.store.GetProduct(s.ctx, id)
	s.Require().NoError(err)
	return p.AvailableQty
}

func (s *SagaSuite) cartItems(userID string) []domain.CartItem {
	var items []domain.CartItem
	s.Require().NoError(s.store.WithinTx(s.ctx, func(tx domain.StockTx) error {
		cart, err := tx.GetCart(s.ctx, userID)
		if err != nil {
			return err
		}
		items = cart.Items
		return nil
	}))
	return items
}

// 场景 A：库存 5，购买 3
func (s *SagaSuite) reserveScenarioA() *domain.Reservation {
	s.store.SeedProduct(domain.InventoryItem{ID: "P", Name: "Pen", Price: 2.5, AvailableQty: 5})
	s.store.SeedCart("u1", domain.CartItem{ProductID: "P", Qty: 3})

	res, err := s.reservation.Reserve(s.ctx, "u1", "order-a")
	s.Require().NoError(err)
	return res
}

func (s *SagaSuite) TestScenarioAFulfilled() {
	res := s.reserveScenarioA()

	s.True(res.FullyFulfilled)
	s.Require().Len(res.Lines, 1)
	s.Equal(3, res.Lines[0].ActualQty)
	s.Equal(2, res.Lines[0].AvailableQty)
	s.Equal("Pen", res.Lines[0].Name)
	s.Equal(2, s.stock("P"))

	ledger := s.store.Ledger("order-a")
	s.Require().NotNil(ledger)
	s.Equal([]domain.ReservedStockItem{{ProductID: "P", Qty: 3}}, ledger.Items)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Reservations.WithLabelValues("fulfilled")))
}

func (s *SagaSuite) TestScenarioBPartial() {
	s.store.SeedProduct(domain.InventoryItem{ID: "P", AvailableQty: 2})
	s.store.SeedCart("u1", domain.CartItem{ProductID: "P", Qty: 5})

	res, err := s.reservation.Reserve(s.ctx, "u1", "order-b")
	s.Require().NoError(err)

	s.False(res.FullyFulfilled)
	s.Equal(2, res.Lines[0].ActualQty)
	s.Equal(5, res.Lines[0].RequestedQty)
	s.Equal(0, s.stock("P"))
	s.Equal(2, s.store.Ledger("order-b").TotalQty())
}

func (s *SagaSuite) TestScenarioCFailureRestoresStock() {
	s.reserveScenarioA()

	result, err := s.compensator.Reconcile(s.ctx, events.OrderOutcome{OrderID: "order-a", UserID: "u1", Success: false})
	s.Require().NoError(err)

	s.Equal(domain.ReconcileRestored, result)
	s.Equal(5, s.stock("P"))
	s.Nil(s.store.Ledger("order-a"))
	s.Equal([]domain.CartItem{{ProductID: "P", Qty: 3}}, s.cartItems("u1"))
}

func (s *SagaSuite) TestScenarioDSuccessClearsCart() {
	s.reserveScenarioA()

	result, err := s.compensator.Reconcile(s.ctx, events.OrderOutcome{OrderID: "order-a", UserID: "u1", Success: true})
	s.Require().NoError(err)

	s.Equal(domain.ReconcileCleared, result)
	s.Equal(2, s.stock("P"))
	s.Empty(s.cartItems("u1"))
	s.Nil(s.store.Ledger("order-a"))
}

func (s *SagaSuite) TestScenarioEConcurrentReservations() {
	s.store.SeedProduct(domain.InventoryItem{ID: "P", AvailableQty: 1})
	s.store.SeedCart("u1", domain.CartItem{ProductID: "P", Qty: 1})
	s.store.SeedCart("u2", domain.CartItem{ProductID: "P", Qty: 1})

	var wg sync.WaitGroup
	results := make([]*domain.Reservation, 2)
	errs := make([]error, 2)
	for i, user := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			results[i], errs[i] = s.reservation.Reserve(s.ctx, user, "order-"+user)
		}(i, user)
	}
	wg.Wait()

	s.Require().NoError(errs[0])
	s.Require().NoError(errs[1])
	got := results[0].Lines[0].ActualQty + results[1].Lines[0].ActualQty
	s.Equal(1, got, "exactly one reservation may take the last unit")
	s.NotEqual(results[0].FullyFulfilled, results[1].FullyFulfilled)
	s.Equal(0, s.stock("P"))
}

func (s *SagaSuite) TestDuplicateOutcomeIsIdempotent() {
	s.reserveScenarioA()
	ev := events.OrderOutcome{OrderID: "order-a", UserID: "u1", Success: false}

	_, err := s.compensator.Reconcile(s.ctx, ev)
	s.Require().NoError(err)
	result, err := s.compensator.Reconcile(s.ctx, ev)
	s.Require().NoError(err)

	s.Equal(domain.ReconcileSkipped, result)
	s.Equal(5, s.stock("P"))
}

func (s *SagaSuite) TestUnknownOrderIsSkipped() {
	result, err := s.compensator.Reconcile(s.ctx, events.OrderOutcome{OrderID: "never-reserved", Success: true})
	s.Require().NoError(err)
	s.Equal(domain.ReconcileSkipped, result)
}

func (s *SagaSuite) TestConservationAcrossProducts() {
	s.store.SeedProduct(domain.InventoryItem{ID: "A", AvailableQty: 4})
	s.store.SeedProduct(domain.InventoryItem{ID: "B", AvailableQty: 1})
	s.store.SeedCart("u1",
		domain.CartItem{ProductID: "A", Qty: 2},
		domain.CartItem{ProductID: "B", Qty: 3},
		domain.CartItem{ProductID: "A", Qty: 1},
	)

	res, err := s.reservation.Reserve(s.ctx, "u1", "order-x")
	s.Require().NoError(err)
	s.Equal(map[string]int{"A": 3, "B": 1}, res.Taken)
	s.Equal(1, s.stock("A"))
	s.Equal(0, s.stock("B"))

	_, err = s.compensator.Reconcile(s.ctx, events.OrderOutcome{OrderID: "order-x", UserID: "u1"})
	s.Require().NoError(err)
	s.Equal(4, s.stock("A"))
	s.Equal(1, s.stock("B"))
}

func (s *SagaSuite) TestNothingAvailableStillWritesLedger() {
	s.store.SeedProduct(domain.InventoryItem{ID: "P", AvailableQty: 0})
	s.store.SeedCart("u1", domain.CartItem{ProductID: "P", Qty: 2})

	res, err := s.reservation.Reserve(s.ctx, "u1", "order-z")
	s.Require().NoError(err)
	s.False(res.FullyFulfilled)
	s.False(res.ReservedAny())

	ledger := s.store.Ledger("order-z")
	s.Require().NotNil(ledger)
	s.Empty(ledger.Items)
}

func (s *SagaSuite) TestReserveErrors() {
	s.store.SeedProduct(domain.InventoryItem{ID: "P", AvailableQty: 5})
	s.store.SeedCart("empty")
	s.store.SeedCart("ghost", domain.CartItem{ProductID: "P", Qty: 1}, domain.CartItem{ProductID: "deleted", Qty: 1})

	cases := []struct {
		name    string
		userID  string
		orderID string
		kind    apperr.Kind
		target  error
	}{
		{"missing cart", "nobody", "o1", apperr.KindNotFound, domain.ErrCartNotFound},
		{"empty cart", "empty", "o2", apperr.KindInvalidArgument, domain.ErrCartEmpty},
		{"unknown product", "ghost", "o3", apperr.KindInvalidArgument, domain.ErrUnknownProduct},
		{"missing order id", "ghost", "", apperr.KindInvalidArgument, domain.ErrMissingID},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.reservation.Reserve(s.ctx, tc.userID, tc.orderID)
			s.Require().Error(err)
			s.ErrorIs(err, tc.target)
			s.Equal(tc.kind, apperr.KindOf(err))
			s.Nil(s.store.Ledger(tc.orderID))
		})
	}
	// 失败的预占不能扣减任何库存
	s.Equal(5, s.stock("P"))
}

func (s *SagaSuite) TestDuplicateOrderIDConflicts() {
	s.reserveScenarioA()

	_, err := s.reservation.Reserve(s.ctx, "u1", "order-a")
	s.Require().ErrorIs(err, domain.ErrLedgerExists)
	s.Equal(apperr.KindConflict, apperr.KindOf(err))
	s.Equal(2, s.stock("P"), "rolled back reservation must not decrement stock")
}

func (s *SagaSuite) TestStockNeverNegative() {
	s.store.SeedProduct(domain.InventoryItem{ID: "P", AvailableQty: 3})
	users := []string{"a", "b", "c", "d", "e"}
	for _, u := range users {
		s.store.SeedCart(u, domain.CartItem{ProductID: "P", Qty: 2})
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			res, err := s.reservation.Reserve(s.ctx, u, "order-"+u)
			if err != nil {
				return
			}
			mu.Lock()
			taken += res.Taken["P"]
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	s.Equal(3, taken)
	s.Equal(0, s.stock("P"))

	for _, u := range users {
		_, err := s.compensator.Reconcile(s.ctx, events.OrderOutcome{OrderID: "order-" + u, UserID: u})
		s.Require().NoError(err)
	}
	s.Equal(3, s.stock("P"))
}
