// internal/notification/hub.go
// Realtime channel: pushes rendered notifications to connected websocket clients

package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 4 * 1024
)

// Hub maintains one websocket connection per user
type Hub struct {
	clients    map[int64]*client
	clientsMux sync.RWMutex
	upgrader   websocket.Upgrader
	kinds      kindFilter
}

// wsEnvelope is the frame pushed to clients
type wsEnvelope struct {
	Type      string    `json:"type"`
	Data      *Message  `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func NewHub(kinds ...Kind) *Hub {
	return &Hub{
		clients: make(map[int64]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		kinds: newKindFilter(kinds),
	}
}

func (h *Hub) Name() string { return "websocket" }

func (h *Hub) Accepts(kind Kind) bool { return h.kinds.accepts(kind) }

// Send pushes msg to the user's live connection. Offline users are skipped.
func (h *Hub) Send(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(wsEnvelope{Type: "notification", Data: msg, Timestamp: msg.CreatedAt})
	if err != nil {
		return err
	}

	// send channels are only closed under the write lock
	h.clientsMux.RLock()
	c, ok := h.clients[msg.UserID]
	if !ok {
		h.clientsMux.RUnlock()
		return ErrNoContact
	}
	delivered := false
	select {
	case c.send <- data:
		delivered = true
	default:
	}
	h.clientsMux.RUnlock()

	if !delivered {
		// Slow consumer
		h.unregister(c)
		return ErrNoContact
	}
	return nil
}

// ServeWS upgrades the request and registers the connection for userID.
// The caller authenticates the user.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{hub: h, conn: conn, userID: userID, send: make(chan []byte, 64)}
	h.register(c)

	go c.writePump()
	go c.readPump()
	return nil
}

// Connected reports whether userID has a live connection
func (h *Hub) Connected(userID int64) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Close disconnects every client
func (h *Hub) Close() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
	websocketClients.Set(0)
}

func (h *Hub) register(c *client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	// Remove old connection for the same user
	if old, exists := h.clients[c.userID]; exists {
		old.close()
	}
	h.clients[c.userID] = c
	websocketClients.Set(float64(len(h.clients)))

	log.Printf("User %d connected to notifications. Total clients: %d", c.userID, len(h.clients))
}

func (h *Hub) unregister(c *client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	if current, exists := h.clients[c.userID]; exists && current == c {
		delete(h.clients, c.userID)
		websocketClients.Set(float64(len(h.clients)))
		log.Printf("User %d disconnected from notifications. Total clients: %d", c.userID, len(h.clients))
	}
	c.close()
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	userID    int64
	send      chan []byte
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ Channel = (*Hub)(nil)
