package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel 对应数据库中的 orders 表
type OrderModel struct {
	ID              string           `gorm:"primaryKey;size:36"`
	UserID          string           `gorm:"size:64;index:idx_user_created,priority:1"`
	Status          string           `gorm:"size:16;not null"`
	TotalAmount     decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	ShippingAddress string           `gorm:"size:512"`
	Items           []OrderItemModel `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time        `gorm:"index:idx_user_created,priority:2"`
	UpdatedAt       time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

type OrderItemModel struct {
	ID         uint            `gorm:"primaryKey"`
	OrderID    string          `gorm:"size:36;index"`
	ProductID  string          `gorm:"size:64"`
	Name       string          `gorm:"size:255"`
	Quantity   int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2)"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2)"`
}

func (OrderItemModel) TableName() string {
	return "order_item"
}

// Models 供 AutoMigrate 使用
func Models() []interface{} {
	return []interface{}{&OrderModel{}, &OrderItemModel{}}
}
