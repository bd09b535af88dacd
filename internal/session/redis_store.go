package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/cart"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis so several gateway replicas share sessions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	c := cart.New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unmarshal session cart failed: %w", err)
	}
	return c, nil
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal session cart failed: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("pos:session:%s", sessionID)
}
