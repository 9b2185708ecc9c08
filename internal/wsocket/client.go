package wsocket

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"whatsapp-api/internal/config"
	"whatsapp-api/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one live connection, a member of its team room and its own
// user room.
type Client struct {
	id     string
	teamID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	rooms  []string
}

// enqueue drops the oldest queued frame rather than blocking the writer
// when a client's local buffer is full, per spec §6.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- frame:
	default:
	}
}

// ServeWS upgrades the request to a WebSocket connection after validating
// the JWT carried in the `token` query parameter (browsers cannot set
// Authorization headers on the WebSocket handshake), then joins the
// caller's team and user rooms.
func (h *Hub) ServeWS(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "token is required"})
			return
		}

		claims, err := middleware.ValidateToken(token, cfg)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "token has expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			id:     uuid.NewString(),
			teamID: claims.TeamID,
			hub:    h,
			conn:   conn,
			send:   make(chan []byte, outboundQueueSize),
			rooms:  []string{TeamRoom(claims.TeamID), UserRoom(claims.UserID)},
		}

		h.register <- client
		go client.writePump(h.pingInterval())
		go client.readPump(h.pongWait())
	}
}

func (c *Client) readPump(pongWait time.Duration) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
