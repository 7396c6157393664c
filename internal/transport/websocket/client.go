package websocket

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/iamasit07/four-in-a-row/internal/domain"
	"github.com/iamasit07/four-in-a-row/internal/service/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// client owns one socket. Only writePump writes to conn.
type client struct {
	id   game.ConnID
	conn *websocket.Conn
	send chan domain.ServerMessage
}

func (c *client) writePump(logger *log.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Debug("write failed", "conn", c.id, "err", err)
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

// Hub tracks live connections and the game rooms they sit in. It is the
// game.Broadcaster for the websocket transport.
type Hub struct {
	mu      sync.RWMutex
	clients map[game.ConnID]*client
	rooms   map[string]map[game.ConnID]struct{} // gameID -> members
	logger  *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Hub{
		clients: make(map[game.ConnID]*client),
		rooms:   make(map[string]map[game.ConnID]struct{}),
		logger:  logger.WithPrefix("ws"),
	}
}

// Add registers conn under id and starts its writer.
func (h *Hub) Add(id game.ConnID, conn *websocket.Conn) {
	c := &client{id: id, conn: conn, send: make(chan domain.ServerMessage, sendBuffer)}

	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()

	go c.writePump(h.logger)
}

// Remove forgets id, drops it from every room and lets its writer close the socket.
func (h *Hub) Remove(id game.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	for gameID, members := range h.rooms {
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, gameID)
		}
	}
	close(c.send)
}

func (h *Hub) Send(id game.ConnID, msg domain.ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.enqueueLocked(id, msg)
}

func (h *Hub) Broadcast(gameID string, msg domain.ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.rooms[gameID] {
		h.enqueueLocked(id, msg)
	}
}

func (h *Hub) JoinRoom(gameID string, id game.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[id]; !ok {
		return
	}
	members, ok := h.rooms[gameID]
	if !ok {
		members = make(map[game.ConnID]struct{})
		h.rooms[gameID] = members
	}
	members[id] = struct{}{}
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// enqueueLocked never blocks; a client that cannot keep up loses the message.
func (h *Hub) enqueueLocked(id game.ConnID, msg domain.ServerMessage) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("send buffer full, dropping message", "conn", id, "type", msg.Type)
	}
}
