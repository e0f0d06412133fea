// Package messaging publishes JSON events to a message broker.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Defaults used for sign-in events.
const (
	DefaultExchange   = "auth.access-log.exchange"
	DefaultRoutingKey = "auth.access-log.save"
)

// Broker drivers understood by Open.
const (
	DriverRabbitMQ = "rabbitmq"
	DriverRedis    = "redis"
	DriverKafka    = "kafka"
	DriverNone     = "none"
)

// Publisher sends v, encoded as JSON, to exchange under routingKey.
type Publisher interface {
	SendJSON(ctx context.Context, v any, exchange, routingKey string) error
	Close() error
}

// Nop discards everything. It backs the "none" driver.
type Nop struct{}

func (Nop) SendJSON(context.Context, any, string, string) error { return nil }
func (Nop) Close() error                                          { return nil }

// Open connects a publisher for driver. url is the broker address; for kafka
// it is a comma separated broker list.
func Open(driver, url string) (Publisher, error) {
	switch strings.ToLower(driver) {
	case DriverRabbitMQ:
		p, err := DialRabbit(url)
		if err != nil {
			return nil, err
		}
		return p, nil
	case DriverRedis:
		p, err := DialRedis(url)
		if err != nil {
			return nil, err
		}
		return p, nil
	case DriverKafka:
		return NewKafkaPublisher(strings.Split(url, ",")...), nil
	case DriverNone, "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("messaging: unknown driver %q", driver)
	}
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("messaging: encode: %w", err)
	}
	return b, nil
}
