package interfaces

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
	"github.com/wangyingjie930/fulfillment/internal/pkg/web"
	"github.com/wangyingjie930/fulfillment/internal/service/order/application"
	"github.com/wangyingjie930/fulfillment/internal/service/order/domain"
)

// HeaderIdempotencyKey 是客户端提供的幂等键
const HeaderIdempotencyKey = "Idempotency-Key"

// OrderHandler 封装了 order 服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 echo 上注册所有路由
func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/orders", h.createOrder)
	e.GET("/orders", h.listOrders)
	e.GET("/orders/:id", h.getOrder)
	e.PATCH("/orders/:id/status", h.updateStatus)
}

type createOrderBody struct {
	ShippingAddress string `json:"shippingAddress"`
}

func (h *OrderHandler) createOrder(c echo.Context) error {
	var body createOrderBody
	if err := c.Bind(&body); err != nil {
		return web.Error(c, apperr.InvalidArgument("malformed request body"))
	}

	resp, err := h.service.CreateOrder(c.Request().Context(), &application.CreateOrderRequest{
		UserID:          c.Request().Header.Get(web.HeaderUserID),
		ShippingAddress: body.ShippingAddress,
		IdempotencyKey:  c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		if resp == nil {
			return web.Error(c, err)
		}
		// 失败但有上下文可返回（重复请求的原订单号、逐行缺货情况）
		kind := apperr.KindOf(err)
		payload := echo.Map{"error": err.Error(), "kind": kind, "orderId": resp.OrderID}
		if len(resp.Products) > 0 {
			payload["products"] = resp.Products
		}
		if kind == apperr.KindInternal {
			return web.Error(c, err)
		}
		return c.JSON(apperr.HTTPStatus(kind), payload)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *OrderHandler) getOrder(c echo.Context) error {
	order, err := h.service.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) listOrders(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return web.Error(c, err)
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return web.Error(c, err)
	}
	result, err := h.service.ListOrders(c.Request().Context(), application.ListOrdersQuery{
		UserID: c.Request().Header.Get(web.HeaderUserID),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type statusBody struct {
	Status string `json:"status"`
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	var body statusBody
	if err := c.Bind(&body); err != nil || body.Status == "" {
		return web.Error(c, domain.ErrInvalidState)
	}
	order, err := h.service.UpdateOrderStatus(c.Request().Context(), c.Param("id"), body.Status)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidArgument(name + " must be an integer")
	}
	return n, nil
}
