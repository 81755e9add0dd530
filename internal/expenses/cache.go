package expenses

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const categoryCacheKey = "expenses:categories"

// CategoryCache serves the category catalogue from Redis. A nil cache or nil
// client degrades to calling the loader directly.
type CategoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCategoryCache instantiates the cache helper.
func NewCategoryCache(client *redis.Client, ttl time.Duration) *CategoryCache {
	return &CategoryCache{client: client, ttl: ttl}
}

// Fetch loads the cached category list or populates it from the loader.
func (c *CategoryCache) Fetch(ctx context.Context, loader func(context.Context) ([]Category, error)) ([]Category, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	payload, err := c.client.Get(ctx, categoryCacheKey).Bytes()
	if err == nil {
		var cats []Category
		if err := json.Unmarshal(payload, &cats); err == nil {
			return cats, nil
		}
		// Corrupt payload falls through to a reload.
	} else if err != redis.Nil {
		return loader(ctx)
	}

	cats, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(cats); err == nil {
		_ = c.client.Set(ctx, categoryCacheKey, raw, c.ttl).Err()
	}
	return cats, nil
}

// Invalidate drops the cached list after a category change.
func (c *CategoryCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, categoryCacheKey).Err()
}
