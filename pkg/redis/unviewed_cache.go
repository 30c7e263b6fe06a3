package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	UnviewedCountKey   = "cart_recovery:unviewed_count"
	DefaultUnviewedTTL = 30 * time.Second
)

// UnviewedCountCache keeps the admin badge count for a short TTL. Writers
// invalidate it so a stale value lives at most until the next change.
type UnviewedCountCache struct {
	store Store
	key   string
	ttl   time.Duration
}

func NewUnviewedCountCache(store Store, ttl time.Duration) *UnviewedCountCache {
	if ttl <= 0 {
		ttl = DefaultUnviewedTTL
	}
	return &UnviewedCountCache{store: store, key: UnviewedCountKey, ttl: ttl}
}

func (c *UnviewedCountCache) Get(ctx context.Context) (int64, bool, error) {
	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Drop the unreadable value so the next read repopulates it.
		_ = c.store.Del(ctx, c.key)
		return 0, false, fmt.Errorf("parse cached unviewed count %q: %w", raw, err)
	}
	return count, true, nil
}

func (c *UnviewedCountCache) Set(ctx context.Context, count int64) error {
	return c.store.Set(ctx, c.key, strconv.FormatInt(count, 10), c.ttl)
}

func (c *UnviewedCountCache) Invalidate(ctx context.Context) error {
	return c.store.Del(ctx, c.key)
}
