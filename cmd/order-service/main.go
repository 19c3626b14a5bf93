// cmd/order-service/main.go
package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/wangyingjie930/fulfillment/internal/api/events"
	"github.com/wangyingjie930/fulfillment/internal/api/inventory"
	"github.com/wangyingjie930/fulfillment/internal/pkg/bootstrap"
	"github.com/wangyingjie930/fulfillment/internal/pkg/database"
	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
	"github.com/wangyingjie930/fulfillment/internal/pkg/mq"
	"github.com/wangyingjie930/fulfillment/internal/pkg/nacos"
	"github.com/wangyingjie930/fulfillment/internal/pkg/rabbitmq"
	"github.com/wangyingjie930/fulfillment/internal/pkg/rpc"
	"github.com/wangyingjie930/fulfillment/internal/pkg/tracing"
	"github.com/wangyingjie930/fulfillment/internal/pkg/web"
	"github.com/wangyingjie930/fulfillment/internal/service/order/application"
	"github.com/wangyingjie930/fulfillment/internal/service/order/domain"
	"github.com/wangyingjie930/fulfillment/internal/service/order/domain/port"
	"github.com/wangyingjie930/fulfillment/internal/service/order/infrastructure"
	"github.com/wangyingjie930/fulfillment/internal/service/order/infrastructure/adapter"
	"github.com/wangyingjie930/fulfillment/internal/service/order/interfaces"
)

const serviceName = "order-service"

func main() {
	cfg, err := bootstrap.LoadConfig(serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(serviceName, cfg.App.LogLevel)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("order service exited with error")
	}
}

func run(cfg bootstrap.Config) error {
	ctx := context.Background()
	app := bootstrap.NewApp(serviceName)

	// 1. 初始化核心技术组件
	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		return fmt.Errorf("init tracer provider: %w", err)
	}
	app.OnShutdown("tracer", tp.Shutdown)
	tracer := otel.Tracer(serviceName)

	repo, err := newOrderRepository(ctx, cfg, app)
	if err != nil {
		return err
	}

	// 2. 创建出站适配器 (Driven Adapters)
	var discovery *nacos.Client
	if cfg.Infra.Nacos.Addrs != "" {
		discovery, err = nacos.NewNacosClient(cfg.Infra.Nacos.Addrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			return err
		}
	}
	target := nacos.ResolveTarget(discovery, cfg.Saga.InventoryService, cfg.Saga.InventoryTarget)
	conn, err := rpc.Dial(ctx, target, tracer)
	if err != nil {
		return fmt.Errorf("dial inventory service %s: %w", target, err)
	}
	app.OnShutdown("inventory-grpc", func(context.Context) error { return conn.Close() })
	reserver := adapter.NewInventoryGRPCAdapter(inventory.NewClient(conn))

	publisher, err := newOutcomePublisher(ctx, cfg, app)
	if err != nil {
		return err
	}

	var guard port.IdempotencyGuard
	if cfg.Infra.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Infra.Redis.Addr,
			Password: cfg.Infra.Redis.Password,
			DB:       cfg.Infra.Redis.DB,
		})
		app.OnShutdown("redis", func(context.Context) error { return rdb.Close() })
		guard = adapter.NewIdempotencyRedisAdapter(rdb, cfg.Infra.Redis.IdempotencyTTL)
	}

	// 3. 创建应用服务，注入所有依赖
	svc := application.NewOrderApplicationService(
		repo, reserver, publisher, guard,
		cfg.Saga.ReserveTimeout, tracer, application.NewMetrics(prometheus.DefaultRegisterer),
	)

	// 4. 创建驱动适配器 (Driving Adapters)
	e := web.NewEcho(tracer, prometheus.DefaultGatherer)
	interfaces.NewOrderHandler(svc).RegisterRoutes(e)
	app.Add(web.NewServer(e, fmt.Sprintf(":%d", cfg.Server.HTTPPort)))

	log.Info().Str("inventory", target).Str("bus", cfg.Saga.BusDriver).Msg("🚀 order service starting")
	return app.Run()
}

func newOrderRepository(ctx context.Context, cfg bootstrap.Config, app *bootstrap.App) (domain.OrderRepository, error) {
	if cfg.Saga.StoreDriver == bootstrap.StoreMemory {
		log.Warn().Msg("using in-memory order repository, data is lost on restart")
		return infrastructure.NewMemoryOrderRepository(), nil
	}
	db, err := database.OpenMySQL(ctx, cfg.Infra.MySQL)
	if err != nil {
		return nil, err
	}
	app.OnShutdown("mysql", database.Close(db))
	if err := db.AutoMigrate(infrastructure.Models()...); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return infrastructure.NewGormOrderRepository(db), nil
}

func newOutcomePublisher(ctx context.Context, cfg bootstrap.Config, app *bootstrap.App) (port.OutcomePublisher, error) {
	if cfg.Saga.BusDriver == bootstrap.BusRabbitMQ {
		conn, err := rabbitmq.Dial(ctx, cfg.Infra.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open amqp channel: %w", err)
		}
		topology := rabbitmq.Topology{Exchange: cfg.Infra.RabbitMQ.Exchange, RoutingKey: events.TopicOrderCreated}
		if err := rabbitmq.DeclareExchange(ch, topology); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("declare exchange: %w", err)
		}
		app.OnShutdown("rabbitmq", func(context.Context) error {
			_ = ch.Close()
			return conn.Close()
		})
		return infrastructure.NewAMQPOutcomePublisher(ch, topology.Exchange), nil
	}

	w := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.Topic)
	app.OnShutdown("kafka-writer", func(context.Context) error { return w.Close() })
	return infrastructure.NewKafkaOutcomePublisher(w), nil
}
