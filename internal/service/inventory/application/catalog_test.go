package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/infrastructure"
)

func newCatalog(t *testing.T) (*CatalogService, *infrastructure.MemoryStockStore) {
	t.Helper()
	store := infrastructure.NewMemoryStockStore()
	store.SeedProduct(domain.InventoryItem{ID: "p1", Name: "Pen", Price: 2, AvailableQty: 5})
	store.SeedProduct(domain.InventoryItem{ID: "p2", Name: "Ink", Price: 3.5, AvailableQty: 1})
	return NewCatalogService(store), store
}

func TestPutCartItem(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog(t)

	require.NoError(t, svc.PutCartItem(ctx, "u1", "p1", 2))
	require.NoError(t, svc.PutCartItem(ctx, "u1", "p2", 1))

	summary, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalItems)
	assert.InDelta(t, 7.5, summary.TotalPrice, 1e-9)
	require.Len(t, summary.Lines, 2)
	assert.Equal(t, "Pen", summary.Lines[0].Name)

	// 数量为 0 表示移除
	require.NoError(t, svc.PutCartItem(ctx, "u1", "p1", 0))
	summary, err = svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalItems)
}

func TestPutCartItemRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog(t)

	assert.ErrorIs(t, svc.PutCartItem(ctx, "u1", "p1", -1), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, svc.PutCartItem(ctx, "u1", "p2", 2), domain.ErrInsufficientStock)
	assert.ErrorIs(t, svc.PutCartItem(ctx, "u1", "nope", 1), domain.ErrProductNotFound)
	assert.ErrorIs(t, svc.PutCartItem(ctx, "", "p1", 1), domain.ErrMissingID)
}

func TestGetCartMissingIsEmpty(t *testing.T) {
	svc, _ := newCatalog(t)

	summary, err := svc.GetCart(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, summary.Lines)
	assert.Zero(t, summary.TotalItems)
}

func TestClearCart(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog(t)
	require.NoError(t, svc.PutCartItem(ctx, "u1", "p1", 2))

	require.NoError(t, svc.ClearCart(ctx, "u1"))
	summary, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, summary.Lines)

	assert.ErrorIs(t, svc.ClearCart(ctx, "nobody"), domain.ErrCartNotFound)
}

func TestUpdateProductQuantity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog(t)

	item, err := svc.UpdateProductQuantity(ctx, "p1", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, item.AvailableQty)

	got, err := svc.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 42, got.AvailableQty)

	_, err = svc.UpdateProductQuantity(ctx, "p1", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = svc.UpdateProductQuantity(ctx, "ghost", 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	all, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
