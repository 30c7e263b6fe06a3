package websocket

import (
	"context"
	"sync"

	"github.com/ikkim/cart-recovery-backend/pkg/logger"
)

const (
	sendBufferSize      = 64
	broadcastBufferSize = 256
)

// Client is one connected admin session.
type Client struct {
	hub    *Hub
	conn   *Conn
	UserID uint
	send   chan []byte
}

// NewClient binds an upgraded connection to the hub.
func NewClient(hub *Hub, conn *Conn, userID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		UserID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Hub fans live feed events out to every connected admin. An admin may be
// connected from several tabs at once.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBufferSize),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Live feed client registered", map[string]interface{}{
				"user_id": client.UserID,
				"clients": total,
			})

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range slow {
				logger.Warn("Live feed client send buffer full, disconnecting", map[string]interface{}{
					"user_id": client.UserID,
				})
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	logger.Info("Live feed client unregistered", map[string]interface{}{
		"user_id": client.UserID,
		"clients": len(h.clients),
	})
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register adds client to the feed. After shutdown the client is closed
// straight away so its pumps exit.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes client. After shutdown every client is already closed
// and the call returns immediately.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues payload for every client. When the queue is full the
// payload is dropped; the feed is advisory.
func (h *Hub) Broadcast(payload []byte) {
	select {
	case h.broadcast <- payload:
	default:
		logger.Warn("Live feed broadcast queue full, event dropped", nil)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
