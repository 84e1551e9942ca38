package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mido200912/Ai-Thor/domain/repository"

	"github.com/redis/go-redis/v9"
)

const defaultNoncePrefix = "oauth:state:"

// RedisNonceStore keeps outstanding OAuth state nonces in Redis so any
// instance can complete a login another instance started.
type RedisNonceStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisNonceStore(client *redis.Client, keyPrefix string) *RedisNonceStore {
	if keyPrefix == "" {
		keyPrefix = defaultNoncePrefix
	}
	return &RedisNonceStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisNonceStore) Remember(ctx context.Context, nonce string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+nonce, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store state nonce: %w", err)
	}
	if !ok {
		return fmt.Errorf("state nonce %s already issued", nonce)
	}
	return nil
}

// Consume uses GETDEL so two concurrent callbacks cannot both win.
func (s *RedisNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	_, err := s.client.GetDel(ctx, s.keyPrefix+nonce).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume state nonce: %w", err)
	}
	return true, nil
}

func (s *RedisNonceStore) Close() error {
	return s.client.Close()
}

var _ repository.INonceStore = (*RedisNonceStore)(nil)
