package apperr

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errCartEmpty = InvalidArgument("cart is empty")

func TestKindSurvivesWrapping(t *testing.T) {
	wrapped := errors.Wrap(fmt.Errorf("reserve: %w", errCartEmpty), "rpc handler")

	assert.Equal(t, KindInvalidArgument, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, errCartEmpty))
	assert.True(t, IsKind(wrapped, KindInvalidArgument))
}

func TestSentinelWithCauseStillMatches(t *testing.T) {
	err := Wrap(KindInvalidArgument, "cart is empty", context.Canceled)

	assert.ErrorIs(t, err, errCartEmpty)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnclassifiedIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestGRPCRoundTrip(t *testing.T) {
	cases := []struct {
		kind Kind
		code codes.Code
	}{
		{KindNotFound, codes.NotFound},
		{KindInvalidArgument, codes.InvalidArgument},
		{KindConflict, codes.Aborted},
		{KindInternal, codes.Internal},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			grpcErr := ToGRPC(New(tc.kind, "x"))
			st, ok := status.FromError(grpcErr)
			require.True(t, ok)
			assert.Equal(t, tc.code, st.Code())
			assert.Equal(t, tc.kind, KindOf(FromGRPC(grpcErr)))
		})
	}
}

func TestDeadlineIsUnknownOutcome(t *testing.T) {
	err := FromGRPC(status.Error(codes.DeadlineExceeded, "deadline exceeded"))
	assert.Equal(t, KindInternal, KindOf(err))

	err = FromGRPC(context.DeadlineExceeded)
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindInvalidArgument))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindConflict))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindInternal))
}
