package kv

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// PQueuePush adds value (JSON-encoded) to a priority queue sorted set,
// scored by priority (higher priority sorts first), per spec §4.10's
// verification queue.
func (g *Gateway) PQueuePush(ctx context.Context, name string, priority int, value interface{}) error {
	s, err := encode(value)
	if err != nil {
		return err
	}
	return g.client.ZAdd(ctx, g.key("pqueue", name), redis.Z{Score: float64(priority), Member: s}).Err()
}

// PQueuePeekTop returns up to limit highest-priority items without
// removing them, decoding each via decodeEach.
func (g *Gateway) PQueuePeekTop(ctx context.Context, name string, limit int, decodeEach func(raw string) error) error {
	members, err := g.client.ZRevRange(ctx, g.key("pqueue", name), 0, int64(limit)-1).Result()
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := decodeEach(m); err != nil {
			return err
		}
	}
	return nil
}

// PQueueRemove removes a specific encoded member from the priority queue.
func (g *Gateway) PQueueRemove(ctx context.Context, name string, value interface{}) error {
	s, err := encode(value)
	if err != nil {
		return err
	}
	return g.client.ZRem(ctx, g.key("pqueue", name), s).Err()
}

// PQueueRemoveRaw removes by the raw encoded member string, used when the
// caller already has it from a PQueuePeekTop decode.
func (g *Gateway) PQueueRemoveRaw(ctx context.Context, name, raw string) error {
	return g.client.ZRem(ctx, g.key("pqueue", name), raw).Err()
}
