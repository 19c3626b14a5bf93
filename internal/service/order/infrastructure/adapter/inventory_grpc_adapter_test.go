package adapter

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyingjie930/fulfillment/internal/api/inventory"
	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
)

type stubReserver struct {
	resp *inventory.ReserveResponse
	err  error
	req  *inventory.ReserveRequest
}

func (s *stubReserver) CheckAndReserveInventory(_ context.Context, req *inventory.ReserveRequest) (*inventory.ReserveResponse, error) {
	s.req = req
	return s.resp, s.err
}

func TestInventoryGRPCAdapterMapsResponse(t *testing.T) {
	stub := &stubReserver{resp: &inventory.ReserveResponse{
		Status:  inventory.StatusPartialFulfillment,
		Message: inventory.MessagePartial,
		Products: []inventory.ReservedProduct{
			{ID: "p1", Name: "Pen", RequestedQty: 5, ActualQty: 2, AvailableQty: 0, Price: 19.99},
		},
	}}
	res, err := NewInventoryGRPCAdapter(stub).Reserve(context.Background(), "o1", "u1")
	require.NoError(t, err)

	assert.Equal(t, "o1", stub.req.OrderID)
	assert.Equal(t, "u1", stub.req.UserID)
	assert.False(t, res.FullyFulfilled)
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].Short())
	assert.True(t, decimal.RequireFromString("19.99").Equal(res.Lines[0].UnitPrice))
}

func TestInventoryGRPCAdapterKeepsErrorKind(t *testing.T) {
	stub := &stubReserver{err: apperr.NotFound("cart not found")}
	_, err := NewInventoryGRPCAdapter(stub).Reserve(context.Background(), "o1", "u1")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
