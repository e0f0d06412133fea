package messaging

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes to topic exchanges, declaring each exchange the
// first time it is used.
type RabbitPublisher struct {
	conn *amqp.Connection

	mu       sync.Mutex
	ch       Channel
	declared map[string]bool
}

// DialRabbit opens a connection and a channel on url.
func DialRabbit(url string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("messaging: dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("messaging: open channel: %w", err)
	}
	p := NewRabbitPublisher(ch)
	p.conn = conn
	return p, nil
}

// NewRabbitPublisher publishes on an already open channel.
func NewRabbitPublisher(ch Channel) *RabbitPublisher {
	return &RabbitPublisher{ch: ch, declared: map[string]bool{}}
}

func (p *RabbitPublisher) SendJSON(ctx context.Context, v any, exchange, routingKey string) error {
	body, err := encode(v)
	if err != nil {
		return err
	}
	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.declared[exchange] {
		if err := p.ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("messaging: declare exchange %s: %w", exchange, err)
		}
		p.declared[exchange] = true
	}
	err = p.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("messaging: publish %s/%s: %w", exchange, routingKey, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
