package domain

import "github.com/wangyingjie930/fulfillment/internal/pkg/apperr"

var (
	ErrCartNotFound      = apperr.NotFound("cart not found")
	ErrCartEmpty         = apperr.InvalidArgument("cart is empty")
	ErrUnknownProduct    = apperr.InvalidArgument("invalid product data")
	ErrProductNotFound   = apperr.NotFound("product not found")
	ErrLedgerNotFound    = apperr.NotFound("reservation ledger not found")
	ErrLedgerExists      = apperr.Conflict("reservation ledger already exists for order")
	ErrStockChanged      = apperr.Conflict("stock changed concurrently")
	ErrInsufficientStock = apperr.InvalidArgument("insufficient stock")
	ErrInvalidQuantity   = apperr.InvalidArgument("quantity must not be negative")
	ErrMissingID         = apperr.InvalidArgument("orderId and userId are required")
)
