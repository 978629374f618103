package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testOrder() *domain.Order {
	return &domain.Order{
		ID:            "order-123",
		User:          &domain.OrderUser{ID: "user-456"},
		OrderItems:    []domain.OrderItem{{Name: "Mouse", Qty: 2, Price: 40, Product: "p1"}},
		PaymentMethod: domain.PaymentPayPal,
		TotalPrice:    102,
	}
}

func TestOrderPlaced_WritesKeyedMessage(t *testing.T) {
	w := &mockWriter{}
	p := newPublisher(w, nil)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	require.NoError(t, p.OrderPlaced(context.Background(), testOrder()))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "order-123", string(msg.Key))
	assert.Equal(t, EventOrderPlaced, string(msg.Headers[0].Value))

	var event OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "user-456", event.UserID)
	assert.Equal(t, "PayPal", event.PaymentMethod)
	assert.Equal(t, 102.0, event.TotalAmount)
	assert.Equal(t, fixed, event.PlacedAt)
	assert.Len(t, event.Items, 1)
}

func TestOrderPlaced_SurvivesCancelledRequest(t *testing.T) {
	w := &mockWriter{}
	p := newPublisher(w, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.OrderPlaced(ctx, testOrder()))
	assert.Len(t, w.messages, 1)
}

func TestOrderPlaced_WriteError(t *testing.T) {
	w := &mockWriter{err: errors.New("leader not available")}
	p := newPublisher(w, nil)

	err := p.OrderPlaced(context.Background(), testOrder())
	assert.ErrorContains(t, err, "order-123")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewPublisher_DoesNotBlockOnBrokers(t *testing.T) {
	p := NewPublisher("order-events", nil, "localhost:9092")
	w, ok := p.writer.(*kafkaGo.Writer)
	require.True(t, ok)
	assert.True(t, w.Async)
	assert.Equal(t, batchTimeout, w.BatchTimeout)
	assert.NotNil(t, w.Completion)
}

func TestCompletionLogger_LogsUndeliveredOrders(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	complete := completionLogger(zap.New(core))

	complete([]kafkaGo.Message{{Key: []byte("order-1")}}, nil)
	assert.Zero(t, logs.Len())

	complete([]kafkaGo.Message{{Key: []byte("order-1")}, {Key: []byte("order-2")}}, errors.New("broker down"))
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "order-2", logs.All()[1].ContextMap()["order_id"])
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}
	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPublisher_Kafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	brokerAddr, cleanup := setupKafka(t)
	defer cleanup()
	createTopic(t, brokerAddr, "order-events")

	p := NewPublisher("order-events", nil, brokerAddr)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, p.OrderPlaced(ctx, testOrder()))

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    "order-events",
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order-123", string(msg.Key))
}
