// Package events publishes storefront domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventOrderPlaced = "OrderPlaced"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderPlaced is the payload of an order-placed event.
type OrderPlaced struct {
	OrderID       string             `json:"order_id"`
	UserID        string             `json:"user_id,omitempty"`
	Items         []domain.OrderItem `json:"items"`
	PaymentMethod string             `json:"payment_method"`
	TotalAmount   float64            `json:"total_amount"`
	IsPaid        bool               `json:"is_paid"`
	PlacedAt      time.Time          `json:"placed_at"`
}

type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewPublisher returns a publisher backed by an async writer. Publishing
// never waits on the brokers; delivery failures are logged once the batch
// completes and Close flushes whatever is still pending.
func NewPublisher(topic string, logger *zap.Logger, brokers ...string) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           batchTimeout,
		Completion:             completionLogger(logger),
	}
	return newPublisher(w, logger)
}

const batchTimeout = 10 * time.Millisecond

func completionLogger(logger *zap.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, m := range msgs {
			logger.Warn("order placed event not delivered",
				zap.String("order_id", string(m.Key)),
				zap.Error(err))
		}
	}
}

func newPublisher(w messageWriter, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{writer: w, timeout: 5 * time.Second, logger: logger, now: time.Now}
}

// OrderPlaced publishes the event keyed by order id, so events of one order
// stay on one partition.
func (p *Publisher) OrderPlaced(ctx context.Context, order *domain.Order) error {
	event := OrderPlaced{
		OrderID:       order.ID,
		Items:         order.OrderItems,
		PaymentMethod: order.PaymentMethod.String(),
		TotalAmount:   order.TotalPrice,
		IsPaid:        order.IsPaid,
		PlacedAt:      order.CreatedAt,
	}
	if order.User != nil {
		event.UserID = order.User.ID
	}
	if event.PlacedAt.IsZero() {
		event.PlacedAt = p.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order placed event: %w", err)
	}

	// The shopper's request may already be done; the event must still go out.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(order.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderPlaced)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish order %s: %w", order.ID, err)
	}
	p.logger.Debug("order placed event published", zap.String("order_id", order.ID))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
