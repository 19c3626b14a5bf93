// internal/service/inventory/domain/store.go
package domain

import (
	"context"
	"time"
)

// StockStore 是库存、账本与购物车的持久化接口，由基础设施层实现。
// 所有写操作都必须发生在 WithinTx 提供的事务里。
type StockStore interface {
	// WithinTx 在一个事务中执行 fn；fn 返回错误或提交失败时整体回滚。
	WithinTx(ctx context.Context, fn func(tx StockTx) error) error

	GetProduct(ctx context.Context, id string) (*InventoryItem, error)
	ListProducts(ctx context.Context) ([]InventoryItem, error)
	// CountLedgersOlderThan 统计创建时间早于 cutoff 的未对账账本。
	CountLedgersOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// StockTx 是事务内可组合的操作集合。
type StockTx interface {
	// GetCart 读取用户购物车及其明细，不存在时返回 ErrCartNotFound。
	GetCart(ctx context.Context, userID string) (*Cart, error)
	// GetInventoryByIDs 按 ID 升序加行锁读取库存，缺失的商品不出现在结果中。
	GetInventoryByIDs(ctx context.Context, ids []string) (map[string]InventoryItem, error)
	// DecrementInventory 扣减库存，结果不能小于 0，否则返回 ErrStockChanged。
	DecrementInventory(ctx context.Context, productID string, qty int) error
	IncrementInventory(ctx context.Context, productID string, qty int) error
	// SetInventoryQty 设置绝对库存（后台补货），商品不存在时返回 ErrProductNotFound。
	SetInventoryQty(ctx context.Context, productID string, qty int) (*InventoryItem, error)

	// CreateReservationLedger 写入账本，同一 OrderID 已存在时返回 ErrLedgerExists。
	CreateReservationLedger(ctx context.Context, ledger *ReservedStock) error
	// GetReservationLedger 加锁读取账本，不存在时返回 ErrLedgerNotFound。
	GetReservationLedger(ctx context.Context, orderID string) (*ReservedStock, error)
	DeleteReservationLedger(ctx context.Context, orderID string) error

	// EnsureCart 返回用户购物车，不存在则创建。
	EnsureCart(ctx context.Context, userID string) (*Cart, error)
	// PutCartItem 设置购物车行数量，qty 为 0 时删除该行。
	PutCartItem(ctx context.Context, cartID uint, productID string, qty int) error
	DeleteCartItems(ctx context.Context, cartID uint) error
}
