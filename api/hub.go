package api

import (
	"sync"

	"VisionFusion/logger"

	"go.uber.org/zap"
)

// client is one websocket subscriber; the hub writes into its channel.
type client chan []byte

// Hub fans frame summaries out to websocket subscribers. Slow subscribers lose
// messages instead of blocking the frame loop.
type Hub struct {
	mu      sync.Mutex
	clients map[client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[client]struct{})}
}

func (h *Hub) register() client {
	c := make(client, 8)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logger.Log().Debug("websocket client registered", zap.Int("clients", n))
	return c
}

func (h *Hub) unregister(c client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c)
	}
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c <- msg:
		default:
			// 客户端太慢，丢弃本条
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c)
	}
}
