package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore persists opaque auth-state blobs for the client driver
// adapter's remote auth hooks, per spec §4.3.
type SessionStore struct{ g *Gateway }

func (g *Gateway) SessionStore() *SessionStore { return &SessionStore{g: g} }

func (s *SessionStore) Save(ctx context.Context, sessionID string, blob []byte, ttl time.Duration) error {
	return s.g.client.Set(ctx, s.g.key("session", sessionID), blob, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) ([]byte, bool, error) {
	b, err := s.g.client.Get(ctx, s.g.key("session", sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.g.client.Del(ctx, s.g.key("session", sessionID)).Err()
}

func (s *SessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.g.client.Exists(ctx, s.g.key("session", sessionID)).Result()
	return n > 0, err
}

func (s *SessionStore) RefreshTTL(ctx context.Context, sessionID string, ttl time.Duration) error {
	return s.g.client.Expire(ctx, s.g.key("session", sessionID), ttl).Err()
}
