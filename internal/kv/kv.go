// Package kv is the KV gateway: a single redis client carries commands,
// publishes and subscriptions alike (there is no separate publisher or
// subscriber connection), and every key is namespaced by a configurable
// prefix and a purpose segment (cache, session, ratelimit, channel, queue,
// pqueue).
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"whatsapp-api/internal/config"
	"whatsapp-api/internal/logx"
)

// Gateway wraps a redis.Client with the namespacing and primitives spec
// §4.2 requires.
type Gateway struct {
	client *redis.Client
	prefix string
	log    *logx.Logger
}

// Open connects to the Redis instance described by cfg.
func Open(cfg *config.Config, log *logx.Logger) (*Gateway, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("kv: parse REDIS_URL: %w", err)
	}
	// Retry strategy: up to 10 retries using go-redis's own backoff between
	// 1s and 60s, which grows exponentially with jitter rather than linearly.
	opts.MaxRetries = 10
	opts.MinRetryBackoff = 1 * time.Second
	opts.MaxRetryBackoff = 60 * time.Second

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("kv: ping: %w", err)
	}

	return &Gateway{client: client, prefix: cfg.Redis.Prefix, log: log}, nil
}

// Close releases the client.
func (g *Gateway) Close() error { return g.client.Close() }

func (g *Gateway) key(purpose, id string) string {
	return fmt.Sprintf("%s:%s:%s", g.prefix, purpose, id)
}

// Raw exposes the underlying client for primitives (cache/session/queue/
// ratelimit/pubsub) that need it without re-wrapping every redis method.
func (g *Gateway) Raw() *redis.Client { return g.client }

func encode(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(s string, out interface{}) error {
	return json.Unmarshal([]byte(s), out)
}
