// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Component 是一个有生命周期的后台进程：HTTP/gRPC server、消息消费者、定时任务等。
// Start 应当阻塞直到 ctx 被取消或发生致命错误。
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// App 封装了所有微服务的通用启动和优雅关停逻辑。
type App struct {
	name       string
	components []Component
	closers    []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

func NewApp(name string) *App {
	return &App{name: name}
}

// Add 注册组件，启动顺序即注册顺序，关停时逆序。
func (a *App) Add(c ...Component) *App {
	a.components = append(a.components, c...)
	return a
}

// OnShutdown 注册在所有组件停止之后执行的资源释放函数（后进先出）。
func (a *App) OnShutdown(name string, fn func(ctx context.Context) error) *App {
	a.closers = append(a.closers, closer{name: name, fn: fn})
	return a
}

// Run 启动所有组件，阻塞直到收到退出信号或任一组件失败。
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

func (a *App) RunContext(parent context.Context) error {
	g, ctx := errgroup.WithContext(parent)
	for _, c := range a.components {
		c := c
		g.Go(func() error {
			log.Info().Str("component", c.Name()).Msg("starting")
			if err := c.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Str("component", c.Name()).Msg("component exited with error")
				return err
			}
			return nil
		})
	}

	// 阻塞直到接收到退出信号或某个组件失败
	<-ctx.Done()
	log.Info().Msgf("Shutting down service %s...", a.name)

	// 创建一个有超时的 context，用于关停流程
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.components) - 1; i >= 0; i-- {
		c := a.components[i]
		if err := c.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Str("component", c.Name()).Msg("error stopping component")
		} else {
			log.Info().Str("component", c.Name()).Msg("stopped")
		}
	}
	runErr := g.Wait()

	for i := len(a.closers) - 1; i >= 0; i-- {
		cl := a.closers[i]
		if err := cl.fn(shutdownCtx); err != nil {
			log.Error().Err(err).Str("resource", cl.name).Msg("error releasing resource")
		}
	}

	log.Info().Msgf("Service %s gracefully shut down.", a.name)
	return runErr
}
