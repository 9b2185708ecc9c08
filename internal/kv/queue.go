package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Push appends value (JSON-encoded) to the tail of a FIFO list queue, per
// spec §4.2. Queue items are self-describing envelopes including the
// originating tenant.Context (the caller is responsible for embedding it).
func (g *Gateway) Push(ctx context.Context, queueName string, value interface{}) error {
	s, err := encode(value)
	if err != nil {
		return err
	}
	return g.client.RPush(ctx, g.key("queue", queueName), s).Err()
}

// Pop blocks up to timeout for an item at the head of the queue, decoding
// it into out. Returns false on timeout with no error.
func (g *Gateway) Pop(ctx context.Context, queueName string, timeout time.Duration, out interface{}) (bool, error) {
	res, err := g.client.BLPop(ctx, timeout, g.key("queue", queueName)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// BLPop returns [key, value]; value is res[1].
	if len(res) < 2 {
		return false, nil
	}
	return true, decode(res[1], out)
}

// PopN drains up to n items without blocking, used by the event processor's
// batcher to pull up to eventBatchSize items per interval.
func (g *Gateway) PopN(ctx context.Context, queueName string, n int, decodeEach func(raw string) error) (int, error) {
	key := g.key("queue", queueName)
	drained := 0
	for i := 0; i < n; i++ {
		raw, err := g.client.LPop(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return drained, err
		}
		if err := decodeEach(raw); err != nil {
			return drained, err
		}
		drained++
	}
	return drained, nil
}

// Length returns the current queue length.
func (g *Gateway) Length(ctx context.Context, queueName string) (int64, error) {
	return g.client.LLen(ctx, g.key("queue", queueName)).Result()
}

// Clear drains the queue entirely, returning the number of items removed.
func (g *Gateway) Clear(ctx context.Context, queueName string) (int64, error) {
	n, err := g.Length(ctx, queueName)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return n, g.client.Del(ctx, g.key("queue", queueName)).Err()
}
