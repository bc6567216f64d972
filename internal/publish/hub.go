// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package publish

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendQueue  = 64
)

// Hub streams messages to websocket clients and serves the latest message
// of every sensor.
//
// It serves two routes: /ws upgrades to a websocket receiving every message
// as a JSON text frame, /api/samples returns the latest messages.
type Hub struct {
	log      *log.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	latest  map[string]Message
	closed  bool
}

// NewHub returns a Hub. A nil logger discards events.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	h := &Hub{
		log: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux:     http.NewServeMux(),
		clients: map[*wsClient]struct{}{},
		latest:  map[string]Message{},
	}
	h.mux.HandleFunc("/ws", h.serveWS)
	h.mux.HandleFunc("/api/samples", h.serveLatest)
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Publish queues m to every client. Slow clients drop messages.
func (h *Hub) Publish(m *Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[m.Sensor] = *m
	for c := range h.clients {
		c.send(*m)
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
	return nil
}

func (h *Hub) serveLatest(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	out := make([]Message, 0, len(h.latest))
	for _, m := range h.latest {
		out = append(out, m)
	}
	h.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Sensor < out[j].Sensor })
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		h.log.Printf("json encode error: %v", err)
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Printf("websocket upgrade error: %v", err)
		return
	}
	c := &wsClient{
		conn:   conn,
		log:    h.log,
		sendCh: make(chan Message, sendQueue),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Printf("websocket client %s connected", conn.RemoteAddr())

	go c.writePump()
	c.readPump()

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.log.Printf("websocket client %s disconnected", conn.RemoteAddr())
}

type wsClient struct {
	conn   *websocket.Conn
	log    *log.Logger
	sendCh chan Message
	done   chan struct{}
	once   sync.Once
}

func (c *wsClient) send(m Message) {
	select {
	case c.sendCh <- m:
	case <-c.done:
	default:
		c.log.Printf("websocket client %s: dropping %s sample (queue full)", c.conn.RemoteAddr(), m.Sensor)
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump discards incoming messages. It returns once the connection is
// closed.
func (c *wsClient) readPump() {
	defer c.close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Printf("websocket read error: %v", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case m := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				c.log.Printf("websocket write error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
