package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyingjie930/fulfillment/internal/api/events"
	"github.com/wangyingjie930/fulfillment/internal/pkg/mq"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
)

// fakeReader 依次返回预置消息，取完后阻塞直到关闭
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    chan struct{}
	once      sync.Once
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{msgs: msgs, closed: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.closed:
		return kafka.Message{}, io.EOF
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.committed))
	for _, m := range r.committed {
		out = append(out, m.Offset)
	}
	return out
}

type fakeReconciler struct {
	mu       sync.Mutex
	failures map[string]int // orderId -> 剩余失败次数
	calls    []events.OrderOutcome
}

func (f *fakeReconciler) Reconcile(_ context.Context, ev events.OrderOutcome) (domain.ReconcileResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ev)
	if f.failures[ev.OrderID] > 0 {
		f.failures[ev.OrderID]--
		return "", errors.New("db unavailable")
	}
	return domain.ReconcileRestored, nil
}

func (f *fakeReconciler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type captureWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}

func outcomeMsg(t *testing.T, offset int64, ev events.OrderOutcome) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Topic: events.TopicOrderCreated, Offset: offset, Key: []byte(ev.OrderID), Value: raw}
}

func runConsumer(t *testing.T, a *OutcomeConsumerAdapter) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()
	return func() {
		require.NoError(t, a.Stop(context.Background()))
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("consumer did not stop")
		}
	}
}

func TestConsumerCommitsAfterReconcile(t *testing.T) {
	reader := newFakeReader(
		outcomeMsg(t, 1, events.OrderOutcome{OrderID: "o1", UserID: "u1"}),
		outcomeMsg(t, 2, events.OrderOutcome{OrderID: "o2", UserID: "u1", Success: true}),
	)
	rec := &fakeReconciler{}
	a := NewOutcomeConsumerAdapter([]mq.MessageReader{reader}, rec, nil)
	stop := runConsumer(t, a)

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, []int64{1, 2}, reader.commits())
	assert.Equal(t, 2, rec.callCount())
}

func TestConsumerRetriesWithoutCommitting(t *testing.T) {
	reader := newFakeReader(
		outcomeMsg(t, 7, events.OrderOutcome{OrderID: "o1"}),
		outcomeMsg(t, 8, events.OrderOutcome{OrderID: "o2"}),
	)
	rec := &fakeReconciler{failures: map[string]int{"o1": 3}}
	a := NewOutcomeConsumerAdapter([]mq.MessageReader{reader}, rec, nil)
	a.RetryBackoff = time.Millisecond
	a.MaxBackoff = 2 * time.Millisecond
	stop := runConsumer(t, a)

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	stop()

	// o1 失败三次后成功，期间后续消息不会越过它被提交
	assert.Equal(t, []int64{7, 8}, reader.commits())
	assert.Equal(t, 5, rec.callCount())
}

func TestConsumerLeavesOffsetOnShutdownDuringFailure(t *testing.T) {
	reader := newFakeReader(outcomeMsg(t, 3, events.OrderOutcome{OrderID: "o1"}))
	rec := &fakeReconciler{failures: map[string]int{"o1": 1 << 30}}
	a := NewOutcomeConsumerAdapter([]mq.MessageReader{reader}, rec, nil)
	a.RetryBackoff = time.Millisecond
	a.MaxBackoff = time.Millisecond
	stop := runConsumer(t, a)

	require.Eventually(t, func() bool { return rec.callCount() >= 3 }, time.Second, time.Millisecond)
	stop()

	assert.Empty(t, reader.commits())
}

func TestConsumerDeadLettersMalformedMessages(t *testing.T) {
	bad := kafka.Message{Topic: events.TopicOrderCreated, Partition: 1, Offset: 11, Value: []byte("{not json")}
	reader := newFakeReader(bad, outcomeMsg(t, 12, events.OrderOutcome{OrderID: "o1"}))
	rec := &fakeReconciler{}
	dlt := &captureWriter{}
	a := NewOutcomeConsumerAdapter([]mq.MessageReader{reader}, rec, dlt)
	stop := runConsumer(t, a)

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	stop()

	require.Equal(t, 1, dlt.count())
	carrier := mq.KafkaHeaderCarrier(dlt.msgs[0].Headers)
	assert.Equal(t, "11", carrier.Get(mq.HeaderOriginalOffset))
	assert.Equal(t, 1, rec.callCount())
}

func TestConsumerWorkersRunConcurrently(t *testing.T) {
	r1 := newFakeReader(outcomeMsg(t, 1, events.OrderOutcome{OrderID: "a"}))
	r2 := newFakeReader(outcomeMsg(t, 1, events.OrderOutcome{OrderID: "b"}))
	rec := &fakeReconciler{}
	a := NewOutcomeConsumerAdapter([]mq.MessageReader{r1, r2}, rec, nil)
	stop := runConsumer(t, a)

	require.Eventually(t, func() bool {
		return len(r1.commits()) == 1 && len(r2.commits()) == 1
	}, time.Second, 5*time.Millisecond)
	stop()
	assert.Equal(t, 2, rec.callCount())
}
