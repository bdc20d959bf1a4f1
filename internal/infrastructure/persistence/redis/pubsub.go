package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/edulight/edulight-backend/internal/infrastructure/messaging"
)

// PubSubClient adapts the go-redis client to messaging.RedisClient so the
// distributed event bus can run on the same Redis instance as the caches.
type PubSubClient struct {
	client *redis.Client
}

// NewPubSubClient creates a PubSubClient sharing the cache connection pool.
func NewPubSubClient(cache *Cache) *PubSubClient {
	return &PubSubClient{
		client: cache.Client(),
	}
}

// Publish sends a message to a Redis channel.
func (p *PubSubClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return p.client.Publish(ctx, channel, message).Err()
}

// Subscribe listens to Redis channels and forwards messages until ctx is done.
func (p *PubSubClient) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	sub := p.client.Subscribe(ctx, channels...)

	// Wait for the subscription to be confirmed before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage)
	go func() {
		defer close(out)
		defer sub.Close()

		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close is a no-op, the underlying client is owned by the Cache.
func (p *PubSubClient) Close() error {
	return nil
}
