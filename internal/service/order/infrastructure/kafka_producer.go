package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wangyingjie930/fulfillment/internal/api/events"
	"github.com/wangyingjie930/fulfillment/internal/pkg/mq"
)

// KafkaOutcomePublisher 以 orderId 为 key 发布结果事件，同一订单的事件落在同一分区
type KafkaOutcomePublisher struct {
	writer mq.MessageWriter
}

func NewKafkaOutcomePublisher(writer mq.MessageWriter) *KafkaOutcomePublisher {
	return &KafkaOutcomePublisher{writer: writer}
}

func (p *KafkaOutcomePublisher) PublishOutcome(ctx context.Context, ev events.OrderOutcome) error {
	eventBytes, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order outcome: %w", err)
	}
	if err := mq.ProduceMessage(ctx, p.writer, []byte(ev.OrderID), eventBytes); err != nil {
		return fmt.Errorf("produce order outcome to kafka: %w", err)
	}
	return nil
}
