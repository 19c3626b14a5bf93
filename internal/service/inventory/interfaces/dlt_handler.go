// internal/service/inventory/interfaces/dlt_handler.go
package interfaces

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
	"github.com/wangyingjie930/fulfillment/internal/pkg/mq"
)

// DltConsumerAdapter 监听死信队列并记录日志
type DltConsumerAdapter struct {
	reader mq.MessageReader
	topic  string

	// FetchBackoff 是拉取失败后的等待时间
	FetchBackoff time.Duration
}

func NewDltConsumerAdapter(reader mq.MessageReader, topic string) *DltConsumerAdapter {
	return &DltConsumerAdapter{reader: reader, topic: topic, FetchBackoff: time.Second}
}

func (a *DltConsumerAdapter) Name() string { return "kafka-dlt-consumer" }

func (a *DltConsumerAdapter) Start(ctx context.Context) error {
	logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("✅ DLT Consumer Adapter started.")
	for {
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				logger.Ctx(ctx).Info().Msg("🛑 DLT Consumer Adapter shutting down.")
				return nil
			}
			logger.Ctx(ctx).Warn().Err(err).Str("topic", a.topic).Msg("failed to fetch dead letter, backing off")
			if !sleep(ctx, a.FetchBackoff) {
				return nil
			}
			continue
		}

		// 记录死信消息详情
		logDeadLetter(ctx, msg)

		// DLT中的消息总是直接提交，因为它们已经被“处理”了（即记录日志）
		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("failed to commit dead letter")
		}
	}
}

func (a *DltConsumerAdapter) Stop(context.Context) error {
	return a.reader.Close()
}

func logDeadLetter(ctx context.Context, msg kafka.Message) {
	carrier := mq.KafkaHeaderCarrier(msg.Headers)

	// 使用结构化日志记录，便于后续分析
	logger.Ctx(ctx).Error().
		Str("reason", "dead_letter_message_received").
		Str("original_topic", carrier.Get(mq.HeaderOriginalTopic)).
		Str("original_partition", carrier.Get(mq.HeaderOriginalPartition)).
		Str("original_offset", carrier.Get(mq.HeaderOriginalOffset)).
		Str("exception_fqcn", carrier.Get(mq.HeaderExceptionFqcn)).
		Str("exception_message", carrier.Get(mq.HeaderExceptionMessage)).
		Str("key", string(msg.Key)).
		Str("value", string(msg.Value)).
		Msg("🚨 CRITICAL: Dead letter message received")
}
