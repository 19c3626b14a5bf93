package infrastructure

import "time"

// InventoryModel 对应数据库中的 inventory 表
type InventoryModel struct {
	ID           string  `gorm:"primaryKey;size:64"`
	Name         string  `gorm:"size:255"`
	Price        float64 `gorm:"type:decimal(10,2)"`
	AvailableQty int     `gorm:"not null;default:0;check:available_qty >= 0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName 指定 GORM 应该使用的表名
func (InventoryModel) TableName() string {
	return "inventory"
}

// CartModel 对应 cart 表，每个用户一行
type CartModel struct {
	ID        uint            `gorm:"primaryKey"`
	UserID    string          `gorm:"size:64;uniqueIndex"`
	Items     []CartItemModel `gorm:"foreignKey:CartID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CartModel) TableName() string {
	return "cart"
}

type CartItemModel struct {
	ID        uint   `gorm:"primaryKey"`
	CartID    uint   `gorm:"uniqueIndex:idx_cart_product"`
	ProductID string `gorm:"size:64;uniqueIndex:idx_cart_product"`
	Qty       int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CartItemModel) TableName() string {
	return "cart_item"
}

// ReservedStockModel 对应 reserved_stock 表，order_id 唯一
type ReservedStockModel struct {
	ID        uint                     `gorm:"primaryKey"`
	OrderID   string                   `gorm:"size:64;uniqueIndex"`
	UserID    string                   `gorm:"size:64"`
	Items     []ReservedStockItemModel `gorm:"foreignKey:ReservedStockID"`
	CreatedAt time.Time                `gorm:"index"`
}

func (ReservedStockModel) TableName() string {
	return "reserved_stock"
}

type ReservedStockItemModel struct {
	ID              uint   `gorm:"primaryKey"`
	ReservedStockID uint   `gorm:"index"`
	ProductID       string `gorm:"size:64"`
	Qty             int
}

func (ReservedStockItemModel) TableName() string {
	return "reserved_stock_item"
}

// Models 供 AutoMigrate 使用
func Models() []interface{} {
	return []interface{}{
		&InventoryModel{}, &CartModel{}, &CartItemModel{},
		&ReservedStockModel{}, &ReservedStockItemModel{},
	}
}
