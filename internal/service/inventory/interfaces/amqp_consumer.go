// internal/service/inventory/interfaces/amqp_consumer.go
package interfaces

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wangyingjie930/fulfillment/internal/api/events"
	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
	"github.com/wangyingjie930/fulfillment/internal/pkg/rabbitmq"
)

// Delivery 是 amqp.Delivery 上用到的确认方法。
type Delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
	Reject(requeue bool) error
}

// AMQPOutcomeConsumer 是 RabbitMQ 版本的结果事件消费者。
// 只在对账事务提交后 Ack；失败则退避后 Nack 重新入队；无法解析的消息 Reject 进入死信队列。
type AMQPOutcomeConsumer struct {
	conn       *amqp.Connection
	topology   rabbitmq.Topology
	prefetch   int
	reconciler Reconciler
	ch         *amqp.Channel

	RequeueDelay time.Duration
}

func NewAMQPOutcomeConsumer(conn *amqp.Connection, topology rabbitmq.Topology, prefetch int, reconciler Reconciler) *AMQPOutcomeConsumer {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &AMQPOutcomeConsumer{
		conn:         conn,
		topology:     topology,
		prefetch:     prefetch,
		reconciler:   reconciler,
		RequeueDelay: time.Second,
	}
}

func (c *AMQPOutcomeConsumer) Name() string { return "amqp-outcome-consumer" }

func (c *AMQPOutcomeConsumer) Start(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	c.ch = ch
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return err
	}
	if err := rabbitmq.DeclareTopology(ch, c.topology); err != nil {
		return err
	}
	deliveries, err := ch.Consume(c.topology.Queue, "inventory-service", false, false, false, false, nil)
	if err != nil {
		return err
	}

	logger.Ctx(ctx).Info().Str("queue", c.topology.Queue).Msg("✅ AMQP outcome consumer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("amqp delivery channel closed")
			}
			msgCtx := rabbitmq.ExtractTraceContext(ctx, d.Headers)
			c.handle(msgCtx, d.Body, &d)
		}
	}
}

func (c *AMQPOutcomeConsumer) Stop(context.Context) error {
	if c.ch == nil {
		return nil
	}
	return c.ch.Close()
}

func (c *AMQPOutcomeConsumer) handle(ctx context.Context, body []byte, d Delivery) {
	ev, err := events.DecodeOrderOutcome(body)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("body", string(body)).Msg("🚨 undecodable order outcome, rejecting to DLQ")
		_ = d.Reject(false)
		return
	}

	if _, err := c.reconciler.Reconcile(ctx, ev); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("order_id", ev.OrderID).Msg("reconcile failed, requeueing")
		select {
		case <-ctx.Done():
		case <-time.After(c.RequeueDelay):
		}
		_ = d.Nack(false, true)
		return
	}
	if err := d.Ack(false); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", ev.OrderID).Msg("ack failed, message may be redelivered")
	}
}
