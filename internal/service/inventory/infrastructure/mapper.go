package infrastructure

import "github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"

// ToDomainInventory 将数据库模型转换为领域模型
func ToDomainInventory(model *InventoryModel) domain.InventoryItem {
	return domain.InventoryItem{
		ID:           model.ID,
		Name:         model.Name,
		Price:        model.Price,
		AvailableQty: model.AvailableQty,
		UpdatedAt:    model.UpdatedAt,
	}
}

func ToDomainCart(model *CartModel) *domain.Cart {
	if model == nil {
		return nil
	}
	cart := &domain.Cart{ID: model.ID, UserID: model.UserID, Items: make([]domain.CartItem, 0, len(model.Items))}
	for _, it := range model.Items {
		cart.Items = append(cart.Items, domain.CartItem{ProductID: it.ProductID, Qty: it.Qty})
	}
	return cart
}

func ToDomainLedger(model *ReservedStockModel) *domain.ReservedStock {
	if model == nil {
		return nil
	}
	ledger := &domain.ReservedStock{
		OrderID:   model.OrderID,
		UserID:    model.UserID,
		CreatedAt: model.CreatedAt,
		Items:     make([]domain.ReservedStockItem, 0, len(model.Items)),
	}
	for _, it := range model.Items {
		ledger.Items = append(ledger.Items, domain.ReservedStockItem{ProductID: it.ProductID, Qty: it.Qty})
	}
	return ledger
}

// ToLedgerModel 将领域模型转换为数据库模型
func ToLedgerModel(ledger *domain.ReservedStock) *ReservedStockModel {
	model := &ReservedStockModel{
		OrderID:   ledger.OrderID,
		UserID:    ledger.UserID,
		CreatedAt: ledger.CreatedAt,
		Items:     make([]ReservedStockItemModel, 0, len(ledger.Items)),
	}
	for _, it := range ledger.Items {
		model.Items = append(model.Items, ReservedStockItemModel{ProductID: it.ProductID, Qty: it.Qty})
	}
	return model
}
