package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/avolkov/storefront/internal/domain"
)

// CartActivity is the confirmed-change event published after a successful
// cart write. Downstream consumers (recommendations, abandoned-cart mail)
// key on the user ID.
type CartActivity struct {
	Event     string            `json:"event"`
	UserID    string            `json:"user_id"`
	Items     []domain.CartItem `json:"items"`
	Total     string            `json:"total"`
	Timestamp time.Time         `json:"timestamp"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Producer{writer: writer}
}

// CartUpdated publishes a cart.updated event keyed by user ID.
func (p *Producer) CartUpdated(ctx context.Context, cart domain.Cart) error {
	event := CartActivity{
		Event:     "cart.updated",
		UserID:    cart.UserID,
		Items:     cart.Items,
		Total:     cart.DisplayTotal(),
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cart activity: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(cart.UserID),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish cart activity: %w", err)
	}
	return nil
}

func (p *Producer) Close() {
	_ = p.writer.Close()
}
