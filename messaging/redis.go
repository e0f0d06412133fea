package messaging

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of redis.UniversalClient the publisher uses.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes to the pub/sub channel "<exchange>:<routingKey>".
type RedisPublisher struct {
	rdb RedisClient
}

// DialRedis connects to a redis:// url.
func DialRedis(url string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("messaging: parse redis url: %w", err)
	}
	return NewRedisPublisher(redis.NewClient(opt)), nil
}

func NewRedisPublisher(rdb RedisClient) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// RedisChannel returns the pub/sub channel for an exchange and routing key.
func RedisChannel(exchange, routingKey string) string {
	return exchange + ":" + routingKey
}

func (p *RedisPublisher) SendJSON(ctx context.Context, v any, exchange, routingKey string) error {
	body, err := encode(v)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, RedisChannel(exchange, routingKey), body).Err(); err != nil {
		return fmt.Errorf("messaging: redis publish: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error { return p.rdb.Close() }
