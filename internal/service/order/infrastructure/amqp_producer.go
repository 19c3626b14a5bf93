package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wangyingjie930/fulfillment/internal/api/events"
	"github.com/wangyingjie930/fulfillment/internal/pkg/rabbitmq"
)

// Publisher 是 *amqp.Channel 上用到的发布方法
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPOutcomePublisher 把结果事件发布到 topic exchange，routing key 为 order.created
type AMQPOutcomePublisher struct {
	ch       Publisher
	exchange string
}

func NewAMQPOutcomePublisher(ch Publisher, exchange string) *AMQPOutcomePublisher {
	return &AMQPOutcomePublisher{ch: ch, exchange: exchange}
}

func (p *AMQPOutcomePublisher) PublishOutcome(ctx context.Context, ev events.OrderOutcome) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order outcome: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, events.TopicOrderCreated, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.OrderID,
		Timestamp:    time.Now(),
		Headers:      rabbitmq.InjectTraceContext(ctx),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish order outcome to rabbitmq: %w", err)
	}
	return nil
}
