package controllers

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks live websocket connections per conversation and fans messages
// out to every participant currently attached. Connections are added by the
// ws handler and dropped on the first failed write or on disconnect.
type Hub struct {
	mu sync.Mutex
	// each connection carries its own write lock so broadcasts to other
	// sockets never wait on a slow one
	conns map[string]map[*websocket.Conn]*sync.Mutex
}

func NewHub() *Hub {
	return &Hub{conns: map[string]map[*websocket.Conn]*sync.Mutex{}}
}

func (h *Hub) Add(conversationID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[conversationID] == nil {
		h.conns[conversationID] = map[*websocket.Conn]*sync.Mutex{}
	}
	h.conns[conversationID][conn] = &sync.Mutex{}
}

func (h *Hub) Remove(conversationID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.conns[conversationID]; set != nil {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, conversationID)
		}
	}
}

// Broadcast writes v as JSON to every connection of the conversation. The
// registry lock is only held to snapshot the set; writes run outside it, so
// a stalled socket cannot block other conversations. A connection that
// fails its write is closed and dropped.
func (h *Hub) Broadcast(conversationID string, v any) {
	type target struct {
		conn *websocket.Conn
		wmu  *sync.Mutex
	}
	h.mu.Lock()
	targets := make([]target, 0, len(h.conns[conversationID]))
	for conn, wmu := range h.conns[conversationID] {
		targets = append(targets, target{conn, wmu})
	}
	h.mu.Unlock()

	var failed []*websocket.Conn
	for _, tg := range targets {
		tg.wmu.Lock()
		err := tg.conn.WriteJSON(v)
		tg.wmu.Unlock()
		if err != nil {
			log.Printf("[ws] broadcast write failed: %v", err)
			tg.conn.Close()
			failed = append(failed, tg.conn)
		}
	}

	for _, conn := range failed {
		h.Remove(conversationID, conn)
	}
}

// ConnCount reports attached connections for one conversation.
func (h *Hub) ConnCount(conversationID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[conversationID])
}
