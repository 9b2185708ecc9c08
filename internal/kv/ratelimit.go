package kv

import (
	"context"
	"fmt"
	"time"
)

// RateLimitResult is the outcome of a sliding-window check, per spec §4.2.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Allow implements a sliding-window rate limiter on a sorted set keyed
// `ratelimit:{id}`: every call is a member scored by its own timestamp;
// members older than the window are trimmed before counting.
func (g *Gateway) Allow(ctx context.Context, id string, limit int, window time.Duration) (RateLimitResult, error) {
	key := g.key("ratelimit", id)
	now := time.Now()
	windowStart := now.Add(-window)

	pipe := g.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitResult{}, err
	}

	count := countCmd.Val()
	reset := now.Add(window)

	if int(count) >= limit {
		return RateLimitResult{Allowed: false, Remaining: 0, Reset: reset}, nil
	}

	member := fmt.Sprintf("%d-%d", now.UnixNano(), count)
	pipe2 := g.client.TxPipeline()
	pipe2.ZAdd(ctx, key, zMember(float64(now.UnixNano()), member))
	pipe2.Expire(ctx, key, window)
	if _, err := pipe2.Exec(ctx); err != nil {
		return RateLimitResult{}, err
	}

	return RateLimitResult{
		Allowed:   true,
		Remaining: limit - int(count) - 1,
		Reset:     reset,
	}, nil
}
