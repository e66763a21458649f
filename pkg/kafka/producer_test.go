package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/resilience"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func headerMap(msg kafka.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func testEvent() *cloudevents.CloudEvent {
	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")
	return cloudevents.NewEventFactory(cloudevents.SourceFulfillment).
		CreateMerchantEvent(ctx, "wms.fulfillment.order.dispatched", "order/ORD-1", "m1", map[string]any{"orderId": "ORD-1", "packingFee": 29})
}

func TestNewMessage(t *testing.T) {
	event := testEvent()

	msg, err := NewMessage(event)
	require.NoError(t, err)

	assert.Equal(t, "order/ORD-1", string(msg.Key))
	headers := headerMap(msg)
	assert.Equal(t, "1.0", headers["ce-specversion"])
	assert.Equal(t, "wms.fulfillment.order.dispatched", headers["ce-type"])
	assert.Equal(t, event.ID, headers["ce-id"])
	assert.Equal(t, "corr-1", headers["ce-wmscorrelationid"])
	assert.Equal(t, "m1", headers["ce-wmsmerchantid"])
	assert.Equal(t, "application/json", headers["content-type"])

	var data map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &data))
	assert.Equal(t, "ORD-1", data["orderId"])
}

func TestProducer_PublishEvent(t *testing.T) {
	writers := map[string]*fakeWriter{}
	p := NewProducer(DefaultConfig(), logging.NewNop(), nil)
	p.newWriter = func(topic string) MessageWriter {
		w := &fakeWriter{}
		writers[topic] = w
		return w
	}

	require.NoError(t, p.PublishEvent(context.Background(), Topics.Orders, testEvent()))
	require.NoError(t, p.PublishEvent(context.Background(), Topics.Orders, testEvent()))

	require.Len(t, writers, 1)
	assert.Len(t, writers[Topics.Orders].messages, 2)

	require.NoError(t, p.Close())
	assert.True(t, writers[Topics.Orders].closed)
}

func TestCircuitBreakerProducer_OpensOnFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewProducer(DefaultConfig(), nil, nil)
	p.newWriter = func(string) MessageWriter { return w }
	cb := NewCircuitBreakerProducer(p, logging.NewNop(), nil)

	for i := 0; i < int(resilience.DefaultFailureThreshold); i++ {
		err := cb.PublishEvent(context.Background(), Topics.Orders, testEvent())
		assert.ErrorContains(t, err, "leader not available")
	}

	err := cb.PublishEvent(context.Background(), Topics.Orders, testEvent())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestTopicForEventType(t *testing.T) {
	assert.Equal(t, Topics.Orders, TopicForEventType("wms.fulfillment.order.created"))
	assert.Equal(t, Topics.Orders, TopicForEventType("wms.fulfillment.order.return-created"))
	assert.Equal(t, Topics.Inbound, TopicForEventType("wms.fulfillment.inbound.picked-up"))
	assert.Equal(t, Topics.Inventory, TopicForEventType("wms.fulfillment.inventory.low-stock-alert"))
}
