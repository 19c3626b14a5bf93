// cmd/inventory-service/main.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
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
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/application"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/infrastructure"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/interfaces"
)

const serviceName = "inventory-service"

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	cfg, err := bootstrap.LoadConfig(serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(serviceName, cfg.App.LogLevel)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("inventory service exited with error")
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

	store, err := newStockStore(ctx, cfg, app)
	if err != nil {
		return err
	}

	// 2. 组装应用服务
	metrics := application.NewMetrics(prometheus.DefaultRegisterer)
	reservation := application.NewReservationService(store, tracer, metrics)
	compensation := application.NewCompensationService(store, tracer, metrics)
	catalog := application.NewCatalogService(store)

	// 3. 驱动适配器
	grpcServer := rpc.NewServer(tracer)
	inventory.RegisterInventoryServer(grpcServer, interfaces.NewInventoryRPCHandler(reservation, catalog))

	e := web.NewEcho(tracer, prometheus.DefaultGatherer)
	interfaces.NewInventoryHandler(catalog).RegisterRoutes(e)

	app.Add(
		interfaces.NewGRPCServer(grpcServer, cfg.Server.GRPCPort),
		web.NewServer(e, fmt.Sprintf(":%d", cfg.Server.HTTPPort)),
		interfaces.NewLedgerMonitor(store, metrics.StaleLedgers, cfg.Saga.StaleLedgerAfter, cfg.Saga.LedgerScanEvery),
	)

	if err := addOutcomeConsumer(ctx, cfg, app, compensation); err != nil {
		return err
	}

	if cfg.Infra.Nacos.Addrs != "" {
		client, err := nacos.NewNacosClient(cfg.Infra.Nacos.Addrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			return err
		}
		ip, err := nacos.OutboundIP()
		if err != nil {
			return fmt.Errorf("resolve outbound ip: %w", err)
		}
		app.Add(nacos.NewRegistration(client, cfg.Saga.InventoryService, ip, cfg.Server.GRPCPort))
	}

	log.Info().Str("bus", cfg.Saga.BusDriver).Str("store", cfg.Saga.StoreDriver).Msg("🚀 inventory service starting")
	return app.Run()
}

func newStockStore(ctx context.Context, cfg bootstrap.Config, app *bootstrap.App) (domain.StockStore, error) {
	if cfg.Saga.StoreDriver == bootstrap.StoreMemory {
		log.Warn().Msg("using in-memory stock store, data is lost on restart")
		store := infrastructure.NewMemoryStockStore()
		seedDemoData(store)
		return store, nil
	}
	db, err := database.OpenMySQL(ctx, cfg.Infra.MySQL)
	if err != nil {
		return nil, err
	}
	app.OnShutdown("mysql", database.Close(db))
	if err := db.AutoMigrate(infrastructure.Models()...); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return infrastructure.NewGormStockStore(db), nil
}

func addOutcomeConsumer(ctx context.Context, cfg bootstrap.Config, app *bootstrap.App, reconciler interfaces.Reconciler) error {
	if cfg.Saga.BusDriver == bootstrap.BusRabbitMQ {
		conn, err := rabbitmq.Dial(ctx, cfg.Infra.RabbitMQ.URL)
		if err != nil {
			return err
		}
		app.OnShutdown("rabbitmq", func(context.Context) error { return conn.Close() })
		topology := rabbitmq.Topology{
			Exchange:   cfg.Infra.RabbitMQ.Exchange,
			Queue:      cfg.Infra.RabbitMQ.Queue,
			RoutingKey: events.TopicOrderCreated,
		}
		app.Add(interfaces.NewAMQPOutcomeConsumer(conn, topology, cfg.Infra.RabbitMQ.Prefetch, reconciler))
		return nil
	}

	kc := cfg.Infra.Kafka
	// 同一消费组内的多个 reader，每个分区同一时刻只属于一个 reader
	readers := make([]mq.MessageReader, 0, kc.Workers)
	for i := 0; i < kc.Workers; i++ {
		readers = append(readers, mq.NewReader(kc.Brokers, kc.Topic, kc.GroupID))
	}

	var dltWriter mq.MessageWriter
	if kc.DeadLetterTopic != "" {
		w := mq.NewWriter(kc.Brokers, kc.DeadLetterTopic)
		app.OnShutdown("kafka-dlt-writer", func(context.Context) error { return w.Close() })
		app.Add(interfaces.NewDltConsumerAdapter(mq.NewReader(kc.Brokers, kc.DeadLetterTopic, kc.GroupID+"-dlt"), kc.DeadLetterTopic))
		dltWriter = w
	}
	app.Add(interfaces.NewOutcomeConsumerAdapter(readers, reconciler, dltWriter))
	return nil
}

// seedDemoData 为内存模式准备几件商品和一个购物车，便于本地联调。
func seedDemoData(store *infrastructure.MemoryStockStore) {
	now := time.Now()
	store.SeedProduct(domain.InventoryItem{ID: "prod-1", Name: "Mechanical Keyboard", Price: 59.99, AvailableQty: 100, UpdatedAt: now})
	store.SeedProduct(domain.InventoryItem{ID: "prod-2", Name: "Wireless Mouse", Price: 19.50, AvailableQty: 20, UpdatedAt: now})
	store.SeedProduct(domain.InventoryItem{ID: "prod-3", Name: "USB-C Hub", Price: 34.00, AvailableQty: 2, UpdatedAt: now})
	store.SeedCart("user-1",
		domain.CartItem{ProductID: "prod-1", Qty: 1},
		domain.CartItem{ProductID: "prod-3", Qty: 5},
	)
}
