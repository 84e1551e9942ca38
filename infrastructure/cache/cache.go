package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/mido200912/Ai-Thor/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects to Redis and verifies the connection with a ping.
func NewCache(ctx context.Context, addr, username, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	logger.GetLogger().WithField("addr", addr).Info("Redis client initialized successfully.")
	return client, nil
}
