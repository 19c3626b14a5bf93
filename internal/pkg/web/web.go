// internal/pkg/web/web.go
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
)

// HeaderUserID 由网关在鉴权后写入。
const HeaderUserID = "X-User-ID"

// NewEcho 创建带 recover、链路追踪、/healthz 与 /metrics 的 echo 实例。
func NewEcho(tracer trace.Tracer, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(Tracing(tracer))

	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return e
}

// Tracing 从请求头恢复上游链路并为每个请求开一个 server span。
func Tracing(tracer trace.Tracer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			ctx, span := tracer.Start(ctx, req.Method+" "+c.Path(), trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.SetAttributes(attribute.Int("http.status_code", c.Response().Status))
			return err
		}
	}
}

// Error 按错误分类写出 JSON 错误响应，内部错误不向客户端暴露细节。
func Error(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.KindInternal {
		logger.Ctx(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg("request failed")
		msg = "internal error"
	}
	return c.JSON(apperr.HTTPStatus(kind), echo.Map{"error": msg, "kind": kind})
}

// Server 把 echo 适配为 bootstrap.Component。
type Server struct {
	e    *echo.Echo
	addr string
}

func NewServer(e *echo.Echo, addr string) *Server {
	return &Server{e: e, addr: addr}
}

func (s *Server) Name() string { return "http" }

func (s *Server) Start(context.Context) error {
	logger.Ctx(context.Background()).Info().Str("addr", s.addr).Msg("HTTP server listening")
	if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
