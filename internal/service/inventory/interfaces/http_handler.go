// internal/service/inventory/interfaces/http_handler.go
package interfaces

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
	"github.com/wangyingjie930/fulfillment/internal/pkg/web"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/application"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
)

// InventoryHandler 封装了库存服务的 HTTP 处理器（商品目录与购物车）
type InventoryHandler struct {
	catalog *application.CatalogService
}

func NewInventoryHandler(catalog *application.CatalogService) *InventoryHandler {
	return &InventoryHandler{catalog: catalog}
}

// RegisterRoutes 在 echo 上注册所有路由
func (h *InventoryHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.listProducts)
	e.GET("/products/:id", h.getProduct)
	e.PUT("/products/:id/quantity", h.updateQuantity)

	e.GET("/carts/:userId", h.getCart)
	e.PUT("/carts/:userId/items", h.putCartItem)
	e.DELETE("/carts/:userId", h.clearCart)
}

type productView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	AvailableQty int     `json:"availableQty"`
}

func toProductView(it domain.InventoryItem) productView {
	return productView{ID: it.ID, Name: it.Name, Price: it.Price, AvailableQty: it.AvailableQty}
}

func (h *InventoryHandler) listProducts(c echo.Context) error {
	items, err := h.catalog.ListProducts(c.Request().Context())
	if err != nil {
		return web.Error(c, err)
	}
	out := make([]productView, 0, len(items))
	for _, it := range items {
		out = append(out, toProductView(it))
	}
	return c.JSON(http.StatusOK, echo.Map{"products": out})
}

func (h *InventoryHandler) getProduct(c echo.Context) error {
	item, err := h.catalog.GetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, toProductView(*item))
}

type quantityBody struct {
	Quantity *int `json:"quantity"`
}

func (h *InventoryHandler) updateQuantity(c echo.Context) error {
	var body quantityBody
	if err := c.Bind(&body); err != nil || body.Quantity == nil {
		return web.Error(c, apperr.InvalidArgument("body must be {\"quantity\": <int>}"))
	}
	item, err := h.catalog.UpdateProductQuantity(c.Request().Context(), c.Param("id"), *body.Quantity)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, toProductView(*item))
}

type cartItemBody struct {
	ProductID string `json:"productId"`
	Qty       *int   `json:"qty"`
}

type cartLineView struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Qty       int     `json:"qty"`
	Subtotal  float64 `json:"subtotal"`
}

func (h *InventoryHandler) putCartItem(c echo.Context) error {
	var body cartItemBody
	if err := c.Bind(&body); err != nil || body.Qty == nil {
		return web.Error(c, apperr.InvalidArgument("body must be {\"productId\": <string>, \"qty\": <int>}"))
	}
	if err := h.catalog.PutCartItem(c.Request().Context(), c.Param("userId"), body.ProductID, *body.Qty); err != nil {
		return web.Error(c, err)
	}
	return h.getCart(c)
}

func (h *InventoryHandler) getCart(c echo.Context) error {
	summary, err := h.catalog.GetCart(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return web.Error(c, err)
	}
	lines := make([]cartLineView, 0, len(summary.Lines))
	for _, l := range summary.Lines {
		lines = append(lines, cartLineView(l))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"userId":     summary.UserID,
		"items":      lines,
		"totalItems": summary.TotalItems,
		"totalPrice": summary.TotalPrice,
	})
}

func (h *InventoryHandler) clearCart(c echo.Context) error {
	if err := h.catalog.ClearCart(c.Request().Context(), c.Param("userId")); err != nil {
		return web.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
