// internal/service/inventory/interfaces/kafka_consumer.go
package interfaces

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/wangyingjie930/fulfillment/internal/api/events"
	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
	"github.com/wangyingjie930/fulfillment/internal/pkg/mq"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
)

// Reconciler 是补偿应用服务的入站端口。
type Reconciler interface {
	Reconcile(ctx context.Context, ev events.OrderOutcome) (domain.ReconcileResult, error)
}

const (
	defaultRetryBackoff = 200 * time.Millisecond
	defaultMaxBackoff   = 30 * time.Second
)

// OutcomeConsumerAdapter 监听 order.created 并驱动补偿服务。
// 每个 reader 是消费组中的一个 worker，分区内严格串行；
// offset 只在对账事务提交之后才提交，处理失败时原地退避重试，不会跳过消息。
type OutcomeConsumerAdapter struct {
	readers    []mq.MessageReader
	reconciler Reconciler
	dlt        mq.MessageWriter // 可为空：格式错误的消息仅记录日志

	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

func NewOutcomeConsumerAdapter(readers []mq.MessageReader, reconciler Reconciler, dlt mq.MessageWriter) *OutcomeConsumerAdapter {
	return &OutcomeConsumerAdapter{
		readers:      readers,
		reconciler:   reconciler,
		dlt:          dlt,
		RetryBackoff: defaultRetryBackoff,
		MaxBackoff:   defaultMaxBackoff,
	}
}

func (a *OutcomeConsumerAdapter) Name() string { return "kafka-outcome-consumer" }

// Start 为每个 reader 启动一个 worker，阻塞直到全部退出。
func (a *OutcomeConsumerAdapter) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, r := range a.readers {
		worker, reader := i, r
		g.Go(func() error { return a.run(ctx, worker, reader) })
	}
	return g.Wait()
}

// Stop 关闭所有 reader，阻塞中的 FetchMessage 会立即返回。
func (a *OutcomeConsumerAdapter) Stop(context.Context) error {
	var errs []error
	for _, r := range a.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *OutcomeConsumerAdapter) run(ctx context.Context, worker int, reader mq.MessageReader) error {
	logger.Ctx(ctx).Info().Int("worker", worker).Msg("✅ Kafka outcome consumer started")
	for {
		// 我们使用FetchMessage而不是ReadMessage，以便手动控制提交时机
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				logger.Ctx(ctx).Info().Int("worker", worker).Msg("🛑 Kafka outcome consumer shutting down")
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Int("worker", worker).Msg("could not fetch message, retrying")
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}

		if err := a.handle(ctx, msg); err != nil {
			// 只有 ctx 结束才会走到这里，offset 保持未提交，重启后重新投递
			return nil
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			// 提交失败会导致重复投递，对账是幂等的
			logger.Ctx(ctx).Warn().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("failed to commit offset")
		}
	}
}

// handle 返回 nil 表示消息可以提交。
func (a *OutcomeConsumerAdapter) handle(ctx context.Context, msg kafka.Message) error {
	msgCtx := mq.ExtractTraceContext(ctx, msg)
	log := logger.Ctx(msgCtx).With().
		Str("topic", msg.Topic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).
		Logger()

	ev, err := events.DecodeOrderOutcome(msg.Value)
	if err != nil {
		log.Error().Err(err).Msg("🚨 undecodable order outcome, dead-lettering")
		return a.retry(ctx, func() error { return a.deadLetter(msgCtx, msg, err) })
	}

	return a.retry(ctx, func() error {
		_, err := a.reconciler.Reconcile(msgCtx, ev)
		if err != nil {
			log.Error().Err(err).Str("order_id", ev.OrderID).Msg("reconcile failed, will retry")
		}
		return err
	})
}

func (a *OutcomeConsumerAdapter) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	if a.dlt == nil {
		return nil
	}
	if err := a.dlt.WriteMessages(ctx, mq.DeadLetter(msg, cause, fmt.Sprintf("%T", cause))); err != nil {
		return fmt.Errorf("write dead letter: %w", err)
	}
	return nil
}

// retry 以指数退避重复执行 fn，直到成功或 ctx 结束。
func (a *OutcomeConsumerAdapter) retry(ctx context.Context, fn func() error) error {
	backoff := a.RetryBackoff
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff *= 2
		if backoff > a.MaxBackoff {
			backoff = a.MaxBackoff
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
