package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/avstore/storefront/domain"
)

// RedisStore persists the cart table under a single redis key. Unlike a
// cache, entries carry no TTL: the cart is durable until cleared.
type RedisStore struct {
	client *redis.Client
	cartID string
}

func NewRedisStore(client *redis.Client, cartID string) *RedisStore {
	return &RedisStore{client: client, cartID: cartID}
}

func (r *RedisStore) Load(ctx context.Context) ([]domain.CartLine, error) {
	data, err := r.client.Get(ctx, r.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}

func (r *RedisStore) Save(ctx context.Context, lines []domain.CartLine) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, r.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key()).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisStore) key() string {
	return fmt.Sprintf("cart:%s", r.cartID)
}
