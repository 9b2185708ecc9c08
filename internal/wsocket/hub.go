// Package wsocket implements the real-time notification surface of spec
// §6: team/user-scoped rooms, JWT-gated connection, ping/pong liveness,
// and cross-instance fan-out over the shared event bus — adapted from the
// teacher's connection-registry websocket manager, generalized from
// per-user int IDs to tenant-scoped rooms.
package wsocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"whatsapp-api/internal/bus"
	"whatsapp-api/internal/config"
	"whatsapp-api/internal/logx"
)

// outboundQueueSize bounds each client's local send buffer; once full the
// oldest queued frame is dropped rather than blocking the writer, per
// spec §6's reconnect/backpressure note.
const outboundQueueSize = 100

// Hub owns every live connection, grouped into rooms ("team:{teamId}" and
// "user:{userId}"), and fans bus envelopes out to the rooms subscribed to
// them.
type Hub struct {
	cfg *config.Config
	bus *bus.Bus
	log *logx.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client

	teamSubs map[string]func() // teamID -> bus unsubscribe, lazily activated

	register   chan *Client
	unregister chan *Client
}

// NewHub builds a Hub. Run must be called to start its event loop.
func NewHub(cfg *config.Config, eventBus *bus.Bus, log *logx.Logger) *Hub {
	return &Hub{
		cfg:        cfg,
		bus:        eventBus,
		log:        log,
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		teamSubs:   make(map[string]func()),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run drives the hub's registration loop until stopCh closes.
func (h *Hub) Run(stopCh <-chan struct{}) {
	h.log.Info("websocket hub started")
	for {
		select {
		case <-stopCh:
			h.shutdownAll()
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	for _, room := range c.rooms {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[string]*Client)
		}
		h.rooms[room][c.id] = c
	}
	_, subscribed := h.teamSubs[c.teamID]
	if !subscribed {
		h.teamSubs[c.teamID] = nil // placeholder, filled in below outside the lock
	}
	h.mu.Unlock()

	if !subscribed {
		unsub := h.SubscribeToBus(c.teamID)
		h.mu.Lock()
		h.teamSubs[c.teamID] = unsub
		h.mu.Unlock()
	}

	h.log.Info("websocket client connected: %s rooms=%v", c.id, c.rooms)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	for _, room := range c.rooms {
		delete(h.rooms[room], c.id)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)

	if len(h.rooms[TeamRoom(c.teamID)]) == 0 {
		if unsub, ok := h.teamSubs[c.teamID]; ok {
			if unsub != nil {
				unsub()
			}
			delete(h.teamSubs, c.teamID)
		}
	}

	h.log.Info("websocket client disconnected: %s", c.id)
}

func (h *Hub) shutdownAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.conn.Close()
	}
	for _, unsub := range h.teamSubs {
		if unsub != nil {
			unsub()
		}
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
	h.teamSubs = make(map[string]func())
}

// BroadcastToRoom enqueues a JSON frame on every client currently
// subscribed to room, dropping the oldest queued frame for any client
// whose send buffer is already full.
func (h *Hub) BroadcastToRoom(room string, eventType string, data interface{}) {
	frame, err := json.Marshal(map[string]interface{}{"type": eventType, "data": data})
	if err != nil {
		h.log.Warn("websocket: failed to encode frame for room %s: %v", room, err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.enqueue(frame)
	}
}

// TeamRoom/UserRoom name the rooms a client joins on connect.
func TeamRoom(teamID string) string { return "team:" + teamID }
func UserRoom(userID string) string { return "user:" + userID }

// SubscribeToBus wires the hub to the event bus, relaying every envelope
// published on a team's channels into that team's room.
func (h *Hub) SubscribeToBus(teamID string) func() {
	ctx := context.Background()
	unsubTeam := h.bus.Subscribe(ctx, bus.TeamChannel(teamID), func(env bus.Envelope) {
		h.BroadcastToRoom(TeamRoom(teamID), env.Type, env)
	})
	unsubRealtime := h.bus.Subscribe(ctx, bus.RealtimeChannel(teamID), func(env bus.Envelope) {
		h.BroadcastToRoom(TeamRoom(teamID), env.Type, env)
	})
	return func() {
		unsubTeam()
		unsubRealtime()
	}
}

// pingInterval/pongWait derive the liveness cadence from config, capped at
// spec §6's 15s/30s ceiling.
func (h *Hub) pingInterval() time.Duration {
	if h.cfg.WebSocket.PingInterval > 0 && h.cfg.WebSocket.PingInterval <= 15*time.Second {
		return h.cfg.WebSocket.PingInterval
	}
	return 15 * time.Second
}

func (h *Hub) pongWait() time.Duration {
	if h.cfg.WebSocket.PongTimeout > 0 && h.cfg.WebSocket.PongTimeout <= 30*time.Second {
		return h.cfg.WebSocket.PongTimeout
	}
	return 30 * time.Second
}
