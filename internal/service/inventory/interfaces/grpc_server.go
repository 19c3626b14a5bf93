// internal/service/inventory/interfaces/grpc_server.go
package interfaces

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/wangyingjie930/fulfillment/internal/api/inventory"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/application"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
)

// InventoryRPCHandler 是预占 RPC 的驱动适配器，把应用服务结果转换为线上格式。
type InventoryRPCHandler struct {
	reservation *application.ReservationService
	catalog     *application.CatalogService
}

func NewInventoryRPCHandler(reservation *application.ReservationService, catalog *application.CatalogService) *InventoryRPCHandler {
	return &InventoryRPCHandler{reservation: reservation, catalog: catalog}
}

func (h *InventoryRPCHandler) CheckAndReserveInventory(ctx context.Context, req *inventory.ReserveRequest) (*inventory.ReserveResponse, error) {
	res, err := h.reservation.Reserve(ctx, req.UserID, req.OrderID)
	if err != nil {
		return nil, err
	}
	return ToReserveResponse(res), nil
}

func (h *InventoryRPCHandler) GetProduct(ctx context.Context, req *inventory.GetProductRequest) (*inventory.Product, error) {
	item, err := h.catalog.GetProduct(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	p := toProduct(*item)
	return &p, nil
}

func (h *InventoryRPCHandler) ListProducts(ctx context.Context, _ *inventory.ListProductsRequest) (*inventory.ListProductsResponse, error) {
	items, err := h.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := &inventory.ListProductsResponse{Products: make([]inventory.Product, 0, len(items))}
	for _, it := range items {
		out.Products = append(out.Products, toProduct(it))
	}
	return out, nil
}

func (h *InventoryRPCHandler) UpdateProductQuantity(ctx context.Context, req *inventory.UpdateProductQuantityRequest) (*inventory.Product, error) {
	item, err := h.catalog.UpdateProductQuantity(ctx, req.ID, req.Quantity)
	if err != nil {
		return nil, err
	}
	p := toProduct(*item)
	return &p, nil
}

// ToReserveResponse 把领域结果转换为 RPC 响应。
func ToReserveResponse(res *domain.Reservation) *inventory.ReserveResponse {
	out := &inventory.ReserveResponse{
		Status:   inventory.StatusFulfilled,
		Message:  inventory.MessageFulfilled,
		Products: make([]inventory.ReservedProduct, 0, len(res.Lines)),
	}
	if !res.FullyFulfilled {
		out.Status = inventory.StatusPartialFulfillment
		out.Message = inventory.MessagePartial
	}
	for _, l := range res.Lines {
		out.Products = append(out.Products, inventory.ReservedProduct{
			ID:           l.ProductID,
			RequestedQty: l.RequestedQty,
			ActualQty:    l.ActualQty,
			AvailableQty: l.AvailableQty,
			Name:         l.Name,
			Price:        l.Price,
		})
	}
	return out
}

func toProduct(it domain.InventoryItem) inventory.Product {
	return inventory.Product{ID: it.ID, Name: it.Name, Price: it.Price, AvailableQty: it.AvailableQty}
}

// GRPCServer 把 grpc.Server 适配为 bootstrap.Component。
type GRPCServer struct {
	server *grpc.Server
	port   int
}

func NewGRPCServer(server *grpc.Server, port int) *GRPCServer {
	return &GRPCServer{server: server, port: port}
}

func (s *GRPCServer) Name() string { return "grpc" }

func (s *GRPCServer) Start(context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen grpc :%d: %w", s.port, err)
	}
	log.Info().Int("port", s.port).Msg("✅ gRPC server listening")
	return s.server.Serve(lis)
}

func (s *GRPCServer) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
	return nil
}
