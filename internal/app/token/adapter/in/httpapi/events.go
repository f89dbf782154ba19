package httpapi

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans ledger events out to websocket subscribers. It is a domain.Sink:
// the ledger hands it events after commit, and a subscriber that cannot keep
// up is dropped rather than ever back-pressuring the ledger.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan domain.Event
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
	}
}

// Emit queues ev for every connected subscriber. Never blocks: a full client
// buffer means the client is too slow and gets disconnected.
func (h *Hub) Emit(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// HandleWebsocket upgrades the connection and streams events until the peer
// goes away.
func (h *Hub) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("httpapi: websocket upgrade: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan domain.Event, 256),
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			h.remove(c)
			return
		}
	}
}

// readLoop discards inbound frames; its only job is to notice the peer
// closing the connection.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

var _ domain.Sink = (*Hub)(nil)
