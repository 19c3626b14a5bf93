package interfaces

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyingjie930/fulfillment/internal/api/events"
	"github.com/wangyingjie930/fulfillment/internal/pkg/rabbitmq"
)

type fakeDelivery struct {
	acked, nacked, rejected bool
	requeue                 bool
}

func (d *fakeDelivery) Ack(bool) error {
	d.acked = true
	return nil
}

func (d *fakeDelivery) Nack(_, requeue bool) error {
	d.nacked, d.requeue = true, requeue
	return nil
}

func (d *fakeDelivery) Reject(requeue bool) error {
	d.rejected, d.requeue = true, requeue
	return nil
}

func rabbitmqTopology() rabbitmq.Topology {
	return rabbitmq.Topology{Exchange: "orders", Queue: "inventory.order-outcome", RoutingKey: events.TopicOrderCreated}
}

func TestAMQPConsumerAcknowledgement(t *testing.T) {
	ok, err := json.Marshal(events.OrderOutcome{OrderID: "o1", UserID: "u1"})
	require.NoError(t, err)

	t.Run("ack after reconcile", func(t *testing.T) {
		c := NewAMQPOutcomeConsumer(nil, rabbitmqTopology(), 1, &fakeReconciler{})
		d := &fakeDelivery{}
		c.handle(context.Background(), ok, d)
		assert.True(t, d.acked)
		assert.False(t, d.nacked)
	})

	t.Run("requeue on failure", func(t *testing.T) {
		c := NewAMQPOutcomeConsumer(nil, rabbitmqTopology(), 1, &fakeReconciler{failures: map[string]int{"o1": 1}})
		c.RequeueDelay = time.Millisecond
		d := &fakeDelivery{}
		c.handle(context.Background(), ok, d)
		assert.False(t, d.acked)
		assert.True(t, d.nacked)
		assert.True(t, d.requeue)
	})

	t.Run("reject poison message", func(t *testing.T) {
		rec := &fakeReconciler{}
		c := NewAMQPOutcomeConsumer(nil, rabbitmqTopology(), 1, rec)
		d := &fakeDelivery{}
		c.handle(context.Background(), []byte(`{"success": true}`), d)
		assert.True(t, d.rejected)
		assert.False(t, d.requeue)
		assert.Zero(t, rec.callCount())
	})
}
