package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"recoup/backend/internal/domain"
)

type RedisConfigCache struct {
	client *redis.Client
}

func NewRedisConfigCache(addr string, password string, db int) *RedisConfigCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisConfigCache{client: client}
}

func (c *RedisConfigCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisConfigCache) Close() error {
	return c.client.Close()
}

func (c *RedisConfigCache) Get(ctx context.Context, key string) (*domain.AutomationConfig, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var config domain.AutomationConfig
	if err := json.Unmarshal([]byte(val), &config); err != nil {
		return nil, false, err
	}
	return &config, true, nil
}

func (c *RedisConfigCache) Set(ctx context.Context, key string, value *domain.AutomationConfig, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
