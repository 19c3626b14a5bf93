// internal/pkg/rabbitmq/rabbitmq.go
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
)

// Topology 描述一组 exchange/queue/routing key 绑定，以及死信交换机。
type Topology struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

func (t Topology) deadLetterExchange() string { return t.Exchange + ".dlx" }
func (t Topology) deadLetterQueue() string    { return t.Queue + ".dlq" }

// Dial 带退避地建立连接，直到成功或 ctx 结束。
func Dial(ctx context.Context, url string) (*amqp.Connection, error) {
	backoff := 500 * time.Millisecond
	for {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dial rabbitmq: %w", err)
		case <-time.After(backoff):
		}
		if backoff < 10*time.Second {
			backoff *= 2
		}
	}
}

// DeclareExchange 声明持久化 topic exchange，发布端只需要这一步。
func DeclareExchange(ch *amqp.Channel, t Topology) error {
	return ch.ExchangeDeclare(t.Exchange, amqp.ExchangeTopic, true, false, false, false, nil)
}

// DeclareTopology 声明业务队列及其死信队列，被 Reject(requeue=false) 的消息进入 DLQ。
func DeclareTopology(ch *amqp.Channel, t Topology) error {
	if err := DeclareExchange(ch, t); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(t.deadLetterExchange(), amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlx: %w", err)
	}
	if _, err := ch.QueueDeclare(t.deadLetterQueue(), true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlq: %w", err)
	}
	if err := ch.QueueBind(t.deadLetterQueue(), "", t.deadLetterExchange(), false, nil); err != nil {
		return fmt.Errorf("bind dlq: %w", err)
	}
	args := amqp.Table{"x-dead-letter-exchange": t.deadLetterExchange()}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(t.Queue, t.RoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// TableCarrier 让 otel propagator 读写 AMQP headers。
type TableCarrier amqp.Table

func (c TableCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c TableCarrier) Set(key, value string) { c[key] = value }

func (c TableCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

func InjectTraceContext(ctx context.Context) amqp.Table {
	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, TableCarrier(headers))
	return headers
}

func ExtractTraceContext(ctx context.Context, headers amqp.Table) context.Context {
	if headers == nil {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, TableCarrier(headers))
}
