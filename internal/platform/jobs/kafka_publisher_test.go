package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
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

func TestKafkaOrderEventPublisherWritesKeyedMessage(t *testing.T) {
	writer := &fakeWriter{}
	publisher, err := NewKafkaOrderEventPublisher(writer)
	require.NoError(t, err)

	at := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	first := services.OrderEvent{Type: services.OrderEventPlaced, OrderID: "CKT_1", CurrentStatus: "Order Placed", OccurredAt: at}
	second := services.OrderEvent{Type: services.OrderEventCancelled, OrderID: "CKT_1", CurrentStatus: "Cancelled", OccurredAt: at}
	require.NoError(t, publisher.PublishOrderEvent(context.Background(), first))
	require.NoError(t, publisher.PublishOrderEvent(context.Background(), second))

	require.Len(t, writer.messages, 2)
	msg := writer.messages[0]
	assert.Equal(t, "CKT_1", string(msg.Key))
	assert.True(t, msg.Time.Equal(at))

	var payload OrderEventMessage
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, services.OrderEventPlaced, payload.Type)
	assert.Equal(t, "Order Placed", payload.CurrentStatus)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, services.OrderEventPlaced, headers["type"])
	assert.Equal(t, payload.EventID, headers["eventId"])

	var next OrderEventMessage
	require.NoError(t, json.Unmarshal(writer.messages[1].Value, &next))
	assert.Less(t, payload.EventID, next.EventID, "event ids must sort in publish order")

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaOrderEventPublisherWrapsWriteErrors(t *testing.T) {
	publisher, err := NewKafkaOrderEventPublisher(&fakeWriter{err: errors.New("leader not available")})
	require.NoError(t, err)

	err = publisher.PublishOrderEvent(context.Background(), services.OrderEvent{Type: services.OrderEventPlaced, OrderID: "CKT_2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestNewKafkaWriterValidatesConfig(t *testing.T) {
	_, err := NewKafkaWriter(KafkaConfig{Topic: "orders"})
	require.Error(t, err)
	_, err = NewKafkaWriter(KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)

	writer, err := NewKafkaWriter(KafkaConfig{Brokers: []string{" localhost:9092 ", ""}, Topic: "orders"})
	require.NoError(t, err)
	assert.Equal(t, "orders", writer.Topic)
	assert.Equal(t, "localhost:9092", writer.Addr.String())
	assert.Equal(t, 1, writer.BatchSize)
}
