package cache

import (
	"context"
	"time"

	"recoup/backend/internal/domain"
)

type ConfigCache interface {
	Get(ctx context.Context, key string) (*domain.AutomationConfig, bool, error)
	Set(ctx context.Context, key string, value *domain.AutomationConfig, ttl time.Duration) error
}

type NoopConfigCache struct{}

func (NoopConfigCache) Get(_ context.Context, _ string) (*domain.AutomationConfig, bool, error) {
	return nil, false, nil
}

func (NoopConfigCache) Set(_ context.Context, _ string, _ *domain.AutomationConfig, _ time.Duration) error {
	return nil
}
