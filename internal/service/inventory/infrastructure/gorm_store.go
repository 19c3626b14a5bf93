package infrastructure

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wangyingjie930/fulfillment/internal/pkg/database"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
)

// GormStockStore 是 StockStore 的 GORM/MySQL 实现。
// 库存行通过 SELECT ... FOR UPDATE 串行化，扣减语句本身也带 available_qty >= ? 守卫。
type GormStockStore struct {
	db *gorm.DB
}

func NewGormStockStore(db *gorm.DB) *GormStockStore {
	return &GormStockStore{db: db}
}

func (s *GormStockStore) WithinTx(ctx context.Context, fn func(tx domain.StockTx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
	return database.Classify(err, "stock transaction")
}

func (s *GormStockStore) GetProduct(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var model InventoryModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, database.Classify(err, "get product")
	}
	item := ToDomainInventory(&model)
	return &item, nil
}

func (s *GormStockStore) ListProducts(ctx context.Context) ([]domain.InventoryItem, error) {
	var models []InventoryModel
	if err := s.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, database.Classify(err, "list products")
	}
	items := make([]domain.InventoryItem, 0, len(models))
	for i := range models {
		items = append(items, ToDomainInventory(&models[i]))
	}
	return items, nil
}

func (s *GormStockStore) CountLedgersOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&ReservedStockModel{}).Where("created_at < ?", cutoff).Count(&n).Error
	return n, database.Classify(err, "count stale ledgers")
}

// gormTx 把一个 *gorm.DB 事务包装成 domain.StockTx
type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var model CartModel
	err := t.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("user_id = ?", userID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCartNotFound
		}
		return nil, database.Classify(err, "get cart")
	}
	return ToDomainCart(&model), nil
}

func (t *gormTx) GetInventoryByIDs(ctx context.Context, ids []string) (map[string]domain.InventoryItem, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	var models []InventoryModel
	// 按主键升序加锁，避免并发预占之间互相死锁
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, database.Classify(err, "lock inventory")
	}
	out := make(map[string]domain.InventoryItem, len(models))
	for i := range models {
		out[models[i].ID] = ToDomainInventory(&models[i])
	}
	return out, nil
}

func (t *gormTx) DecrementInventory(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	res := t.db.WithContext(ctx).Model(&InventoryModel{}).
		Where("id = ? AND available_qty >= ?", productID, qty).
		UpdateColumns(map[string]interface{}{
			"available_qty": gorm.Expr("available_qty - ?", qty),
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return database.Classify(res.Error, "decrement inventory")
	}
	if res.RowsAffected == 0 {
		return domain.ErrStockChanged
	}
	return nil
}

func (t *gormTx) IncrementInventory(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	res := t.db.WithContext(ctx).Model(&InventoryModel{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]interface{}{
			"available_qty": gorm.Expr("available_qty + ?", qty),
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return database.Classify(res.Error, "increment inventory")
	}
	if res.RowsAffected == 0 {
		// 账本引用的商品已被删除，无法回补
		return domain.ErrProductNotFound
	}
	return nil
}

func (t *gormTx) SetInventoryQty(ctx context.Context, productID string, qty int) (*domain.InventoryItem, error) {
	var model InventoryModel
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, database.Classify(err, "lock product")
	}
	model.AvailableQty = qty
	model.UpdatedAt = time.Now()
	if err := t.db.WithContext(ctx).Model(&model).UpdateColumns(map[string]interface{}{
		"available_qty": qty,
		"updated_at":    model.UpdatedAt,
	}).Error; err != nil {
		return nil, database.Classify(err, "set inventory")
	}
	item := ToDomainInventory(&model)
	return &item, nil
}

func (t *gormTx) CreateReservationLedger(ctx context.Context, ledger *domain.ReservedStock) error {
	model := ToLedgerModel(ledger)
	if err := t.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrLedgerExists
		}
		return database.Classify(err, "create ledger")
	}
	return nil
}

func (t *gormTx) GetReservationLedger(ctx context.Context, orderID string) (*domain.ReservedStock, error) {
	var model ReservedStockModel
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("product_id") }).
		Where("order_id = ?", orderID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, database.Classify(err, "get ledger")
	}
	return ToDomainLedger(&model), nil
}

func (t *gormTx) DeleteReservationLedger(ctx context.Context, orderID string) error {
	var model ReservedStockModel
	err := t.db.WithContext(ctx).Select("id").Where("order_id = ?", orderID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrLedgerNotFound
		}
		return database.Classify(err, "find ledger")
	}
	if err := t.db.WithContext(ctx).Where("reserved_stock_id = ?", model.ID).Delete(&ReservedStockItemModel{}).Error; err != nil {
		return database.Classify(err, "delete ledger items")
	}
	if err := t.db.WithContext(ctx).Delete(&ReservedStockModel{}, model.ID).Error; err != nil {
		return database.Classify(err, "delete ledger")
	}
	return nil
}

func (t *gormTx) EnsureCart(ctx context.Context, userID string) (*domain.Cart, error) {
	model := CartModel{UserID: userID}
	err := t.db.WithContext(ctx).
		Where(CartModel{UserID: userID}).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		FirstOrCreate(&model).Error
	if err != nil {
		return nil, database.Classify(err, "ensure cart")
	}
	return ToDomainCart(&model), nil
}

func (t *gormTx) PutCartItem(ctx context.Context, cartID uint, productID string, qty int) error {
	db := t.db.WithContext(ctx)
	if qty == 0 {
		err := db.Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&CartItemModel{}).Error
		return database.Classify(err, "delete cart item")
	}
	item := CartItemModel{CartID: cartID, ProductID: productID, Qty: qty}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"qty", "updated_at"}),
	}).Create(&item).Error
	return database.Classify(err, "put cart item")
}

func (t *gormTx) DeleteCartItems(ctx context.Context, cartID uint) error {
	err := t.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&CartItemModel{}).Error
	return database.Classify(err, "delete cart items")
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || database.IsDuplicateKey(err)
}
