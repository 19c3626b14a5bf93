// internal/pkg/apperr/errors.go
package apperr

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind 是跨服务共享的错误分类。
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindConflict        Kind = "CONFLICT" // 并发冲突，可整体重试
	KindInternal        Kind = "INTERNAL"
)

// Error 携带错误分类，包装后依然可以通过 errors.As 取回。
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让同一个哨兵错误在附加了底层原因后仍能被 errors.Is 识别。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap 保留 kind 和 msg，附加底层原因。
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NotFound(msg string) *Error        { return New(KindNotFound, msg) }
func InvalidArgument(msg string) *Error { return New(KindInvalidArgument, msg) }
func Conflict(msg string) *Error        { return New(KindConflict, msg) }
func Internal(msg string) *Error        { return New(KindInternal, msg) }

// KindOf 返回错误链上第一个 *Error 的分类，未分类的错误一律视为 Internal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind 判断错误链是否属于指定分类。
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// GRPCCode 把分类映射为 gRPC 状态码。
func GRPCCode(kind Kind) codes.Code {
	switch kind {
	case KindNotFound:
		return codes.NotFound
	case KindInvalidArgument:
		return codes.InvalidArgument
	case KindConflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// ToGRPC 把任意错误转换成 gRPC status error。
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(GRPCCode(KindOf(err)), err.Error())
}

// FromGRPC 在客户端把 gRPC status 还原为带分类的错误。
// 超时和取消属于结果未知，按 Internal 处理，调用方必须发布失败事件。
func FromGRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return Wrap(KindInternal, "rpc transport failure", err)
	}
	var kind Kind
	switch st.Code() {
	case codes.NotFound:
		kind = KindNotFound
	case codes.InvalidArgument:
		kind = KindInvalidArgument
	case codes.Aborted, codes.AlreadyExists:
		kind = KindConflict
	default:
		kind = KindInternal
	}
	return Wrap(kind, st.Message(), err)
}

// HTTPStatus 把分类映射为 HTTP 状态码。
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
