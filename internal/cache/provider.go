package cache

import (
	"context"
	"time"

	"recoup/backend/internal/domain"
	"recoup/backend/internal/store"
)

const configTTL = 5 * time.Minute

// CachedConfigProvider wraps a ConfigProvider with a read-through cache.
// Cache failures fall back to the source; a stale entry can delay an
// automation toggle by at most the TTL.
type CachedConfigProvider struct {
	source store.ConfigProvider
	cache  ConfigCache
}

func NewCachedConfigProvider(source store.ConfigProvider, cache ConfigCache) *CachedConfigProvider {
	if cache == nil {
		cache = NoopConfigCache{}
	}
	return &CachedConfigProvider{source: source, cache: cache}
}

func (p *CachedConfigProvider) GetConfig(ctx context.Context, userID string) (domain.AutomationConfig, error) {
	key := "automation_config:" + userID
	if cached, ok, err := p.cache.Get(ctx, key); err == nil && ok {
		return *cached, nil
	}

	config, err := p.source.GetConfig(ctx, userID)
	if err != nil {
		return domain.AutomationConfig{}, err
	}
	_ = p.cache.Set(ctx, key, &config, configTTL)
	return config, nil
}
