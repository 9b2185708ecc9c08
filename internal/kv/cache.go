package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Get fetches a cached value into out, reporting redis.Nil (translated to
// a plain bool) on miss.
func (g *Gateway) Get(ctx context.Context, id string, out interface{}) (bool, error) {
	s, err := g.client.Get(ctx, g.key("cache", id)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, decode(s, out)
}

// Set writes a cached value that expires after ttl; a zero ttl sets no
// expiry.
func (g *Gateway) Set(ctx context.Context, id string, value interface{}, ttl time.Duration) error {
	s, err := encode(value)
	if err != nil {
		return err
	}
	return g.client.Set(ctx, g.key("cache", id), s, ttl).Err()
}

// Delete removes a single cached key.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	return g.client.Del(ctx, g.key("cache", id)).Err()
}

// DeletePattern removes every cache key matching a glob pattern, used to
// invalidate whole families of metric/correlation caches at once.
func (g *Gateway) DeletePattern(ctx context.Context, pattern string) error {
	iter := g.client.Scan(ctx, 0, g.key("cache", pattern), 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return g.client.Del(ctx, keys...).Err()
}

// GetOrSet returns the cached value, populating it via factory on miss.
func (g *Gateway) GetOrSet(ctx context.Context, id string, ttl time.Duration, out interface{}, factory func() (interface{}, error)) error {
	hit, err := g.Get(ctx, id, out)
	if err != nil {
		return err
	}
	if hit {
		return nil
	}
	value, err := factory()
	if err != nil {
		return err
	}
	if err := g.Set(ctx, id, value, ttl); err != nil {
		return err
	}
	s, err := encode(value)
	if err != nil {
		return err
	}
	return decode(s, out)
}
