package application

import (
	"context"
	"errors"

	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
)

// CatalogService 提供商品查询、后台补货与购物车维护，不参与 Saga。
type CatalogService struct {
	store domain.StockStore
}

func NewCatalogService(store domain.StockStore) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.store.ListProducts(ctx)
}

// UpdateProductQuantity 设置绝对库存水位。
func (s *CatalogService) UpdateProductQuantity(ctx context.Context, id string, qty int) (*domain.InventoryItem, error) {
	if qty < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	var item *domain.InventoryItem
	err := s.store.WithinTx(ctx, func(tx domain.StockTx) error {
		var err error
		item, err = tx.SetInventoryQty(ctx, id, qty)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("product_id", id).Int("qty", qty).Msg("inventory level set")
	return item, nil
}

// PutCartItem 设置购物车中某商品的数量，0 表示移除。
func (s *CatalogService) PutCartItem(ctx context.Context, userID, productID string, qty int) error {
	if userID == "" || productID == "" {
		return domain.ErrMissingID
	}
	if qty < 0 {
		return domain.ErrInvalidQuantity
	}
	return s.store.WithinTx(ctx, func(tx domain.StockTx) error {
		if qty > 0 {
			stock, err := tx.GetInventoryByIDs(ctx, []string{productID})
			if err != nil {
				return err
			}
			item, ok := stock[productID]
			if !ok {
				return domain.ErrProductNotFound
			}
			if qty > item.AvailableQty {
				return domain.ErrInsufficientStock
			}
		}
		cart, err := tx.EnsureCart(ctx, userID)
		if err != nil {
			return err
		}
		return tx.PutCartItem(ctx, cart.ID, productID, qty)
	})
}

// GetCart 返回购物车及价格汇总，购物车不存在时返回空汇总。
func (s *CatalogService) GetCart(ctx context.Context, userID string) (*domain.CartSummary, error) {
	summary := &domain.CartSummary{UserID: userID, Lines: []domain.CartLine{}}
	err := s.store.WithinTx(ctx, func(tx domain.StockTx) error {
		cart, err := tx.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		stock, err := tx.GetInventoryByIDs(ctx, cart.ProductIDs())
		if err != nil {
			return err
		}
		for _, it := range cart.Items {
			inv := stock[it.ProductID]
			line := domain.CartLine{
				ProductID: it.ProductID,
				Name:      inv.Name,
				Price:     inv.Price,
				Qty:       it.Qty,
				Subtotal:  inv.Price * float64(it.Qty),
			}
			summary.Lines = append(summary.Lines, line)
			summary.TotalItems += it.Qty
			summary.TotalPrice += line.Subtotal
		}
		return nil
	})
	if errors.Is(err, domain.ErrCartNotFound) {
		return summary, nil
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ClearCart 删除购物车中的全部商品。
func (s *CatalogService) ClearCart(ctx context.Context, userID string) error {
	return s.store.WithinTx(ctx, func(tx domain.StockTx) error {
		cart, err := tx.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		return tx.DeleteCartItems(ctx, cart.ID)
	})
}
