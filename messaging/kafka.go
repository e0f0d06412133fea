package messaging

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Writer is the subset of kafka.Writer we need.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher maps the exchange to a topic and the routing key to the
// message key.
type KafkaPublisher struct {
	w Writer
}

// NewKafkaPublisher writes to brokers. The topic is chosen per message.
func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	})
}

func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) SendJSON(ctx context.Context, v any, exchange, routingKey string) error {
	body, err := encode(v)
	if err != nil {
		return err
	}
	msg := kafka.Message{Topic: exchange, Key: []byte(routingKey), Value: body}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("messaging: kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
