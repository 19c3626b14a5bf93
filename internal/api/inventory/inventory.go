// Package inventory 定义库存服务对外暴露的 RPC 契约。
// 消息以 JSON codec 编码（见 internal/pkg/rpc），服务描述手写，不依赖 protoc。
package inventory

import (
	"context"

	"google.golang.org/grpc"

	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
)

const (
	ServiceName = "inventory.InventoryService"

	MethodCheckAndReserve       = "/" + ServiceName + "/CheckAndReserveInventory"
	MethodGetProduct            = "/" + ServiceName + "/GetProduct"
	MethodListProducts          = "/" + ServiceName + "/ListProducts"
	MethodUpdateProductQuantity = "/" + ServiceName + "/UpdateProductQuantity"
)

const (
	StatusFulfilled          = "fulfilled"
	StatusPartialFulfillment = "partial_fulfillment"

	MessageFulfilled = "All products successfully reserved"
	MessagePartial   = "Some products had insufficient stock"
)

type ReserveRequest struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
}

// ReservedProduct 是购物车中一行的预占结果，AvailableQty 为扣减后的库存。
type ReservedProduct struct {
	ID           string  `json:"id"`
	RequestedQty int     `json:"requestedQty"`
	ActualQty    int     `json:"actualQty"`
	AvailableQty int     `json:"availableQty"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
}

type ReserveResponse struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Products []ReservedProduct `json:"products"`
}

func (r *ReserveResponse) FullyFulfilled() bool { return r.Status == StatusFulfilled }

type GetProductRequest struct {
	ID string `json:"id"`
}

type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	AvailableQty int     `json:"availableQty"`
}

type ListProductsRequest struct{}

type ListProductsResponse struct {
	Products []Product `json:"products"`
}

type UpdateProductQuantityRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// InventoryServer 由库存服务实现。
type InventoryServer interface {
	CheckAndReserveInventory(ctx context.Context, req *ReserveRequest) (*ReserveResponse, error)
	GetProduct(ctx context.Context, req *GetProductRequest) (*Product, error)
	ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error)
	UpdateProductQuantity(ctx context.Context, req *UpdateProductQuantityRequest) (*Product, error)
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAndReserveInventory", Handler: unary(MethodCheckAndReserve, InventoryServer.CheckAndReserveInventory)},
		{MethodName: "GetProduct", Handler: unary(MethodGetProduct, InventoryServer.GetProduct)},
		{MethodName: "ListProducts", Handler: unary(MethodListProducts, InventoryServer.ListProducts)},
		{MethodName: "UpdateProductQuantity", Handler: unary(MethodUpdateProductQuantity, InventoryServer.UpdateProductQuantity)},
	},
	Metadata: "internal/api/inventory",
}

func unary[Req, Resp any](fullMethod string, call func(InventoryServer, context.Context, *Req) (*Resp, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(InventoryServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client 是 InventoryServer 的客户端，返回的错误已还原为 apperr 分类。
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) CheckAndReserveInventory(ctx context.Context, req *ReserveRequest) (*ReserveResponse, error) {
	out := new(ReserveResponse)
	if err := c.cc.Invoke(ctx, MethodCheckAndReserve, req, out); err != nil {
		return nil, apperr.FromGRPC(err)
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, req *GetProductRequest) (*Product, error) {
	out := new(Product)
	if err := c.cc.Invoke(ctx, MethodGetProduct, req, out); err != nil {
		return nil, apperr.FromGRPC(err)
	}
	return out, nil
}

func (c *Client) ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	out := new(ListProductsResponse)
	if err := c.cc.Invoke(ctx, MethodListProducts, req, out); err != nil {
		return nil, apperr.FromGRPC(err)
	}
	return out, nil
}

func (c *Client) UpdateProductQuantity(ctx context.Context, req *UpdateProductQuantityRequest) (*Product, error) {
	out := new(Product)
	if err := c.cc.Invoke(ctx, MethodUpdateProductQuantity, req, out); err != nil {
		return nil, apperr.FromGRPC(err)
	}
	return out, nil
}
