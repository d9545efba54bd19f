// Copyright 2025 Takhin Data, Inc.

package invalidation

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/takhin-data/stratum/pkg/logger"
)

// Hub fans invalidation Events out to connected WebSocket peers, grounded on
// the teacher's pkg/console/websocket.go WebSocketHub (there broadcasting
// topic/group/metrics events to console clients; here broadcasting
// invalidation Events to peer instances and admin dashboards), per
// spec.md §4.5's remote-propagation requirement.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	logger     *logger.Logger
	mu         sync.RWMutex
	stopCh     chan struct{}
	stopOnce   sync.Once
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	hubWriteWait      = 10 * time.Second
	hubPongWait       = 60 * time.Second
	hubPingPeriod     = (hubPongWait * 9) / 10
	hubMaxMessageSize = 64 * 1024
)

// NewHub creates a Hub and subscribes it to mgr's Events() bus. Call Run in
// its own goroutine, then ServeWS from an HTTP handler.
func NewHub(mgr *Manager, log *logger.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     log,
		stopCh:     make(chan struct{}),
	}

	mgr.Events().Subscribe(func(ev Event) {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		select {
		case h.broadcast <- payload:
		default:
			h.logger.Warn("invalidation hub broadcast channel full, dropping event", "key", ev.Key)
		}
	})

	return h
}

// Run drives the Hub's register/unregister/broadcast loop until Stop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					go func(c *client) { h.unregister <- c }(c)
				}
			}
			h.mu.RUnlock()

		case <-h.stopCh:
			return
		}
	}
}

// Stop shuts the Hub's loop down. Idempotent.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// ClientCount reports the number of connected peers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades r to a WebSocket connection and streams invalidation
// events to it until the peer disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("invalidation hub upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.register <- c

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(hubMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(hubPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(hubPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
