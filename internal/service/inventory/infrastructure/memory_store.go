package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
)

// MemoryStockStore 是进程内的 StockStore 实现，用于本地开发（STORE_DRIVER=memory）和测试。
// 事务之间以一把互斥锁完全串行化，fn 返回错误时丢弃快照，等价于回滚。
type MemoryStockStore struct {
	mu    sync.Mutex
	state memoryState
}

type memoryState struct {
	products   map[string]domain.InventoryItem
	carts      map[string]*domain.Cart
	ledgers    map[string]*domain.ReservedStock
	nextCartID uint
}

func NewMemoryStockStore() *MemoryStockStore {
	return &MemoryStockStore{state: memoryState{
		products: map[string]domain.InventoryItem{},
		carts:    map[string]*domain.Cart{},
		ledgers:  map[string]*domain.ReservedStock{},
	}}
}

// SeedProduct 直接写入商品，用于初始化。
func (s *MemoryStockStore) SeedProduct(item domain.InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[item.ID] = item
}

// SeedCart 直接写入购物车，用于初始化。
func (s *MemoryStockStore) SeedCart(userID string, items ...domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.nextCartID++
	s.state.carts[userID] = &domain.Cart{
		ID:     s.state.nextCartID,
		UserID: userID,
		Items:  append([]domain.CartItem(nil), items...),
	}
}

// Ledger 返回账本副本，不存在时返回 nil。
func (s *MemoryStockStore) Ledger(orderID string) *domain.ReservedStock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.state.ledgers[orderID]
	if !ok {
		return nil
	}
	return copyLedger(l)
}

func (s *MemoryStockStore) WithinTx(ctx context.Context, fn func(tx domain.StockTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	// 调用方已放弃（如 RPC 超时）时不提交，与数据库事务随连接取消而回滚一致
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *MemoryStockStore) GetProduct(_ context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.state.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &item, nil
}

func (s *MemoryStockStore) ListProducts(context.Context) ([]domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]domain.InventoryItem, 0, len(s.state.products))
	for _, it := range s.state.products {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *MemoryStockStore) CountLedgersOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, l := range s.state.ledgers {
		if l.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (st memoryState) clone() memoryState {
	out := memoryState{
		products:   make(map[string]domain.InventoryItem, len(st.products)),
		carts:      make(map[string]*domain.Cart, len(st.carts)),
		ledgers:    make(map[string]*domain.ReservedStock, len(st.ledgers)),
		nextCartID: st.nextCartID,
	}
	for k, v := range st.products {
		out.products[k] = v
	}
	for k, v := range st.carts {
		c := *v
		c.Items = append([]domain.CartItem(nil), v.Items...)
		out.carts[k] = &c
	}
	for k, v := range st.ledgers {
		out.ledgers[k] = copyLedger(v)
	}
	return out
}

func copyLedger(l *domain.ReservedStock) *domain.ReservedStock {
	c := *l
	c.Items = append([]domain.ReservedStockItem(nil), l.Items...)
	return &c
}

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	c, ok := t.state.carts[userID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	out := *c
	out.Items = append([]domain.CartItem(nil), c.Items...)
	return &out, nil
}

func (t *memoryTx) GetInventoryByIDs(_ context.Context, ids []string) (map[string]domain.InventoryItem, error) {
	out := make(map[string]domain.InventoryItem, len(ids))
	for _, id := range ids {
		if it, ok := t.state.products[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (t *memoryTx) DecrementInventory(_ context.Context, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	it, ok := t.state.products[productID]
	if !ok || it.AvailableQty < qty {
		return domain.ErrStockChanged
	}
	it.AvailableQty -= qty
	it.UpdatedAt = time.Now()
	t.state.products[productID] = it
	return nil
}

func (t *memoryTx) IncrementInventory(_ context.Context, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	it, ok := t.state.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	it.AvailableQty += qty
	it.UpdatedAt = time.Now()
	t.state.products[productID] = it
	return nil
}

func (t *memoryTx) SetInventoryQty(_ context.Context, productID string, qty int) (*domain.InventoryItem, error) {
	it, ok := t.state.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	it.AvailableQty = qty
	it.UpdatedAt = time.Now()
	t.state.products[productID] = it
	return &it, nil
}

func (t *memoryTx) CreateReservationLedger(_ context.Context, ledger *domain.ReservedStock) error {
	if _, ok := t.state.ledgers[ledger.OrderID]; ok {
		return domain.ErrLedgerExists
	}
	t.state.ledgers[ledger.OrderID] = copyLedger(ledger)
	return nil
}

func (t *memoryTx) GetReservationLedger(_ context.Context, orderID string) (*domain.ReservedStock, error) {
	l, ok := t.state.ledgers[orderID]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	return copyLedger(l), nil
}

func (t *memoryTx) DeleteReservationLedger(_ context.Context, orderID string) error {
	if _, ok := t.state.ledgers[orderID]; !ok {
		return domain.ErrLedgerNotFound
	}
	delete(t.state.ledgers, orderID)
	return nil
}

func (t *memoryTx) EnsureCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if _, ok := t.state.carts[userID]; !ok {
		t.state.nextCartID++
		t.state.carts[userID] = &domain.Cart{ID: t.state.nextCartID, UserID: userID}
	}
	return t.GetCart(ctx, userID)
}

func (t *memoryTx) PutCartItem(_ context.Context, cartID uint, productID string, qty int) error {
	cart := t.cartByID(cartID)
	if cart == nil {
		return domain.ErrCartNotFound
	}
	for i, it := range cart.Items {
		if it.ProductID != productID {
			continue
		}
		if qty == 0 {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		} else {
			cart.Items[i].Qty = qty
		}
		return nil
	}
	if qty > 0 {
		cart.Items = append(cart.Items, domain.CartItem{ProductID: productID, Qty: qty})
	}
	return nil
}

func (t *memoryTx) DeleteCartItems(_ context.Context, cartID uint) error {
	if cart := t.cartByID(cartID); cart != nil {
		cart.Items = nil
	}
	return nil
}

func (t *memoryTx) cartByID(id uint) *domain.Cart {
	for _, c := range t.state.carts {
		if c.ID == id {
			return c
		}
	}
	return nil
}
