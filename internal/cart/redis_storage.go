package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps the cart record under a fixed key and broadcasts every
// write on a pub/sub channel. Each storage instance carries a writer id and
// drops its own broadcasts, so Watch behaves like a cross-tab change event:
// only other writers trigger it.
type RedisStorage struct {
	client   *redis.Client
	key      string
	writerID string
}

func NewRedisStorage(client *redis.Client, key string) *RedisStorage {
	return &RedisStorage{
		client:   client,
		key:      key,
		writerID: uuid.New().String(),
	}
}

func (r *RedisStorage) Load(ctx context.Context) (*Cart, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if cart.SchemaVersion == 0 {
		// Pre-versioning record, adopt the current schema.
		cart.SchemaVersion = SchemaVersion
	}

	return &cart, nil
}

func (r *RedisStorage) Save(ctx context.Context, cart *Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// No TTL: the cart persists until explicitly cleared.
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	r.broadcast(ctx)
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	r.broadcast(ctx)
	return nil
}

func (r *RedisStorage) Watch(ctx context.Context) (<-chan struct{}, error) {
	pubsub := r.client.Subscribe(ctx, r.channel())
	// Force the subscription to be established before returning so callers
	// never miss a change made right after Watch.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	events := make(chan struct{}, 1)
	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload == r.writerID {
					continue // own write
				}
				select {
				case events <- struct{}{}:
				default: // an event is already pending, coalesce
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func (r *RedisStorage) broadcast(ctx context.Context) {
	if err := r.client.Publish(ctx, r.channel(), r.writerID).Err(); err != nil {
		log.Printf("cart change broadcast failed: %v", err)
	}
}

func (r *RedisStorage) channel() string {
	return r.key + ":changed"
}
