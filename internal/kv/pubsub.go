package kv

import (
	"context"
)

// Publish sends value (JSON-encoded) on channel, per spec §4.2.
func (g *Gateway) Publish(ctx context.Context, channel string, value interface{}) error {
	s, err := encode(value)
	if err != nil {
		return err
	}
	return g.client.Publish(ctx, g.key("channel", channel), s).Err()
}

// Subscribe listens on channel and invokes cb for every message until ctx
// is cancelled or the returned unsubscribe func is called.
func (g *Gateway) Subscribe(ctx context.Context, channel string, cb func(payload string)) func() {
	ps := g.client.Subscribe(ctx, g.key("channel", channel))
	done := make(chan struct{})

	go func() {
		ch := ps.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				cb(msg.Payload)
			}
		}
	}()

	return func() {
		close(done)
		_ = ps.Close()
	}
}
