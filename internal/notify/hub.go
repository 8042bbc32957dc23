package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	pingInterval = 45 * time.Second
	readTimeout  = 90 * time.Second
	clientBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type subscriber struct {
	out  chan Message
	done chan struct{}
}

// Hub broadcasts messages to connected websocket subscribers. Slow
// subscribers drop messages instead of blocking the run.
type Hub struct {
	mu      sync.RWMutex
	clients map[*subscriber]struct{}
}

// NewHub returns a hub without subscribers.
func NewHub() *Hub {
	return &Hub{clients: make(map[*subscriber]struct{})}
}

// Notify queues msg for every subscriber.
func (h *Hub) Notify(_ context.Context, msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- msg:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *subscriber) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *subscriber) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeWS upgrades the request and streams messages until the peer goes
// away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	c := &subscriber{out: make(chan Message, clientBuffer), done: make(chan struct{})}
	h.add(c)
	defer h.remove(c)

	go func() {
		ping := time.NewTicker(pingInterval)
		defer ping.Stop()
		for {
			select {
			case msg := <-c.out:
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			case <-ping.C:
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			case <-c.done:
				return
			}
		}
	}()
	defer close(c.done)

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
