// internal/service/inventory/domain/inventory.go
package domain

import "time"

// InventoryItem 是可售商品及其库存水位。
// AvailableQty 只在预占（扣减）和补偿（回补）两条路径上变化。
type InventoryItem struct {
	ID           string
	Name         string
	Price        float64
	AvailableQty int
	UpdatedAt    time.Time
}

// Cart 每个用户只有一个活跃购物车。
type Cart struct {
	ID     uint
	UserID string
	Items  []CartItem
}

type CartItem struct {
	ProductID string
	Qty       int
}

func (c *Cart) IsEmpty() bool { return c == nil || len(c.Items) == 0 }

// ProductIDs 返回去重后的商品 ID，保持首次出现的顺序。
func (c *Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

// CartLine 是带价格的购物车行，用于购物车查询。
type CartLine struct {
	ProductID string
	Name      string
	Price     float64
	Qty       int
	Subtotal  float64
}

// CartSummary 汇总购物车。
type CartSummary struct {
	UserID     string
	Lines      []CartLine
	TotalItems int
	TotalPrice float64
}
