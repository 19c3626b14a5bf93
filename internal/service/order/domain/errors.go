// internal/service/order/domain/errors.go
package domain

import "github.com/wangyingjie930/fulfillment/internal/pkg/apperr"

var (
	ErrOrderNotFound      = apperr.NotFound("order not found")
	ErrMissingUser        = apperr.InvalidArgument("user id is required")
	ErrInvalidState       = apperr.InvalidArgument("unknown order status")
	ErrIllegalTransition  = apperr.Conflict("illegal order status transition")
	ErrNothingReserved    = apperr.Conflict("no stock available for any cart item")
	ErrDuplicateRequest   = apperr.Conflict("duplicate request for idempotency key")
	ErrOrderAlreadyExists = apperr.Conflict("order already exists")
)
