package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harborops/terminal-core/internal/models"
)

const (
	passCachePrefix = "pass:code:"
	passCacheTTL    = 5 * time.Minute
)

// CachedStore decorates a Store with redis caching for pass-by-code lookups,
// the hottest read path at the gate. Cache failures degrade to the underlying
// store; a stale entry lives at most passCacheTTL, and pass mutations
// invalidate eagerly.
type CachedStore struct {
	Store
	cache *redis.Client
}

func NewCachedStore(base Store, cache *redis.Client) *CachedStore {
	return &CachedStore{Store: base, cache: cache}
}

func (c *CachedStore) GetDigitalPassByCode(ctx context.Context, code string) (models.DigitalPass, error) {
	key := passCachePrefix + code

	if raw, err := c.cache.Get(ctx, key).Result(); err == nil {
		var pass models.DigitalPass
		if err := json.Unmarshal([]byte(raw), &pass); err == nil {
			return pass, nil
		}
	}

	pass, err := c.Store.GetDigitalPassByCode(ctx, code)
	if err != nil {
		return models.DigitalPass{}, err
	}

	if b, err := json.Marshal(pass); err == nil {
		_ = c.cache.Set(ctx, key, b, passCacheTTL).Err()
	}
	return pass, nil
}

func (c *CachedStore) SaveDigitalPass(ctx context.Context, pass models.DigitalPass) error {
	if err := c.Store.SaveDigitalPass(ctx, pass); err != nil {
		return err
	}
	_ = c.cache.Del(ctx, passCachePrefix+pass.PassCode).Err()
	return nil
}

func (c *CachedStore) CreateDigitalPass(ctx context.Context, pass models.DigitalPass) (models.DigitalPass, error) {
	created, err := c.Store.CreateDigitalPass(ctx, pass)
	if err != nil {
		return models.DigitalPass{}, err
	}
	_ = c.cache.Del(ctx, passCachePrefix+created.PassCode).Err()
	return created, nil
}
