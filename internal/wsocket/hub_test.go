package wsocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"whatsapp-api/internal/bus"
	"whatsapp-api/internal/config"
	"whatsapp-api/internal/logx"
)

func TestTeamRoomUserRoom_Naming(t *testing.T) {
	assert.Equal(t, "team:abc", TeamRoom("abc"))
	assert.Equal(t, "user:xyz", UserRoom("xyz"))
}

func TestHub_PingInterval_DefaultsWhenUnset(t *testing.T) {
	h := NewHub(&config.Config{}, nil, nil)
	assert.Equal(t, 15*time.Second, h.pingInterval())
}

func TestHub_PingInterval_RespectsConfigWithinCeiling(t *testing.T) {
	cfg := &config.Config{}
	cfg.WebSocket.PingInterval = 10 * time.Second
	h := NewHub(cfg, nil, nil)
	assert.Equal(t, 10*time.Second, h.pingInterval())
}

func TestHub_PingInterval_IgnoresValueAboveCeiling(t *testing.T) {
	cfg := &config.Config{}
	cfg.WebSocket.PingInterval = 60 * time.Second
	h := NewHub(cfg, nil, nil)
	assert.Equal(t, 15*time.Second, h.pingInterval())
}

func TestHub_PongWait_DefaultsWhenUnset(t *testing.T) {
	h := NewHub(&config.Config{}, nil, nil)
	assert.Equal(t, 30*time.Second, h.pongWait())
}

func TestHub_PongWait_IgnoresValueAboveCeiling(t *testing.T) {
	cfg := &config.Config{}
	cfg.WebSocket.PongTimeout = 45 * time.Second
	h := NewHub(cfg, nil, nil)
	assert.Equal(t, 30*time.Second, h.pongWait())
}

func TestHub_AddRemoveClient_TracksRoomsAndTeamSubscription(t *testing.T) {
	log := logx.NewDefault()
	h := NewHub(&config.Config{}, bus.New(nil, log), log)

	client := &Client{id: "c1", teamID: "team-1", send: make(chan []byte, 1), rooms: []string{TeamRoom("team-1"), UserRoom("user-1")}}
	h.addClient(client)

	h.mu.RLock()
	_, subscribed := h.teamSubs["team-1"]
	roomSize := len(h.rooms[TeamRoom("team-1")])
	h.mu.RUnlock()
	assert.True(t, subscribed)
	assert.Equal(t, 1, roomSize)

	h.removeClient(client)

	h.mu.RLock()
	_, stillSubscribed := h.teamSubs["team-1"]
	_, roomExists := h.rooms[TeamRoom("team-1")]
	h.mu.RUnlock()
	assert.False(t, stillSubscribed)
	assert.False(t, roomExists)
}
