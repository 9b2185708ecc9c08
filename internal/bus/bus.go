// Package bus implements the publish/subscribe event bus, per spec §2/§5:
// channels keyed `team:{teamId}` and `realtime:{teamId}`, delivering
// envelopes to in-process subscribers. Delivery is best-effort — the bus
// gives no guarantee across instance restarts, per spec §5.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"whatsapp-api/internal/kv"
	"whatsapp-api/internal/logx"
)

// Envelope is the value published on any channel. Data is a schemaless
// blob per spec §9.
type Envelope struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	EventType string                 `json:"event_type,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Handler processes an Envelope delivered on a channel.
type Handler func(Envelope)

// Bus fans envelopes out to in-process subscribers and, via the KV
// gateway's Redis pub/sub, across process instances.
type Bus struct {
	kv         *kv.Gateway
	log        *logx.Logger
	instanceID string

	mu          sync.RWMutex
	subscribers map[string][]Handler
	unsubKV     map[string]func()
}

// wireEnvelope is what actually crosses the Redis wire: the envelope plus
// the publishing instance's ID, so a receiving instance can tell its own
// echo apart from a genuinely remote publish.
type wireEnvelope struct {
	InstanceID string   `json:"instance_id"`
	Envelope   Envelope `json:"envelope"`
}

// New builds a Bus backed by the given KV gateway.
func New(kvGateway *kv.Gateway, log *logx.Logger) *Bus {
	return &Bus{
		kv:          kvGateway,
		log:         log,
		instanceID:  uuid.NewString(),
		subscribers: make(map[string][]Handler),
		unsubKV:     make(map[string]func()),
	}
}

// TeamChannel is the `team:{teamId}` channel name.
func TeamChannel(teamID string) string { return fmt.Sprintf("team:%s", teamID) }

// RealtimeChannel is the `realtime:{teamId}` channel name.
func RealtimeChannel(teamID string) string { return fmt.Sprintf("realtime:%s", teamID) }

// Publish fans env out to local subscribers and publishes it on the KV
// gateway's Redis channel for cross-instance delivery.
func (b *Bus) Publish(ctx context.Context, channel string, env Envelope) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[channel]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		go safeInvoke(b.log, h, env)
	}

	if b.kv != nil {
		wire := wireEnvelope{InstanceID: b.instanceID, Envelope: env}
		if err := b.kv.Publish(ctx, channel, wire); err != nil {
			b.log.Warn("bus: publish to redis failed for %s: %v", channel, err)
		}
	}
}

// Subscribe registers an in-process handler for channel and, on first
// subscription, opens the cross-instance Redis subscription too.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler Handler) func() {
	b.mu.Lock()
	b.subscribers[channel] = append(b.subscribers[channel], handler)
	if _, already := b.unsubKV[channel]; !already && b.kv != nil {
		b.unsubKV[channel] = b.kv.Subscribe(ctx, channel, func(payload string) {
			var wire wireEnvelope
			if err := json.Unmarshal([]byte(payload), &wire); err != nil {
				b.log.Warn("bus: malformed redis payload on %s: %v", channel, err)
				return
			}
			if wire.InstanceID == b.instanceID {
				// This instance's own publish already dispatched its
				// local handlers from Publish; skip to avoid a double fire.
				return
			}
			b.mu.RLock()
			handlers := append([]Handler(nil), b.subscribers[channel]...)
			b.mu.RUnlock()
			for _, h := range handlers {
				go safeInvoke(b.log, h, wire.Envelope)
			}
		})
	}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		handlers := b.subscribers[channel]
		for i, h := range handlers {
			if fmt.Sprintf("%p", h) == fmt.Sprintf("%p", handler) {
				b.subscribers[channel] = append(handlers[:i], handlers[i+1:]...)
				break
			}
		}
	}
}

func safeInvoke(log *logx.Logger, h Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("bus: subscriber panic: %v", r)
		}
	}()
	h(env)
}
