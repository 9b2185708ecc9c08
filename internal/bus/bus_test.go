package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-api/internal/logx"
)

// newLocalBus builds a Bus with no KV gateway, exercising only the
// in-process fan-out path (Publish/Subscribe's cross-instance Redis leg is
// skipped whenever b.kv is nil).
func newLocalBus() *Bus {
	return New(nil, logx.NewDefault())
}

func TestSubscribe_ReceivesLocalPublish(t *testing.T) {
	b := newLocalBus()
	var mu sync.Mutex
	var received []Envelope

	unsub := b.Subscribe(context.Background(), "team:t1", func(env Envelope) {
		mu.Lock()
		received = append(received, env)
		mu.Unlock()
	})
	defer unsub()

	b.Publish(context.Background(), "team:t1", Envelope{Type: "session.ready"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "session.ready", received[0].Type)
}

func TestSubscribe_DoesNotReceiveOtherChannels(t *testing.T) {
	b := newLocalBus()
	var mu sync.Mutex
	received := 0

	unsub := b.Subscribe(context.Background(), "team:t1", func(Envelope) {
		mu.Lock()
		received++
		mu.Unlock()
	})
	defer unsub()

	b.Publish(context.Background(), "team:t2", Envelope{Type: "noise"})

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, received)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := newLocalBus()
	var mu sync.Mutex
	received := 0

	unsub := b.Subscribe(context.Background(), "team:t1", func(Envelope) {
		mu.Lock()
		received++
		mu.Unlock()
	})
	unsub()

	b.Publish(context.Background(), "team:t1", Envelope{Type: "session.ready"})

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, received)
}

func TestTeamChannel_RealtimeChannel_Naming(t *testing.T) {
	assert.Equal(t, "team:abc", TeamChannel("abc"))
	assert.Equal(t, "realtime:abc", RealtimeChannel("abc"))
}

func TestSafeInvoke_RecoversFromPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		safeInvoke(logx.NewDefault(), func(Envelope) { panic("boom") }, Envelope{})
	})
}
