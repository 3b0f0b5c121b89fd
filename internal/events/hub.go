package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/pkg/logger"
)

// Hub tracks open event streams and broadcasts to all of them.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	log         logger.Logger

	totalRegistered   int64
	totalUnregistered int64
}

// HubStats summarises hub activity.
type HubStats struct {
	CurrentConnections int   `json:"current_connections"`
	TotalRegistered    int64 `json:"total_registered"`
	TotalUnregistered  int64 `json:"total_unregistered"`
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{connections: make(map[string]*Connection), log: log}
}

// Register adds c to the broadcast set.
func (h *Hub) Register(c *Connection) {
	h.mu.Lock()
	h.connections[c.ID] = c
	h.mu.Unlock()
	atomic.AddInt64(&h.totalRegistered, 1)
}

// Unregister removes and closes c. Safe to call more than once.
func (h *Hub) Unregister(c *Connection) {
	h.mu.Lock()
	_, ok := h.connections[c.ID]
	delete(h.connections, c.ID)
	h.mu.Unlock()

	if ok {
		atomic.AddInt64(&h.totalUnregistered, 1)
	}
	c.Close("unregistered")
}

// Broadcast sends message to every registered connection and returns the
// number it was queued for.
func (h *Hub) Broadcast(message []byte) int {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range conns {
		if c.Send(message) {
			sent++
		}
	}
	return sent
}

// BroadcastEvent marshals and broadcasts event.
func (h *Hub) BroadcastEvent(event domain.Event) int {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal event for broadcast", logger.Error(err))
		return 0
	}
	return h.Broadcast(data)
}

// HandleEvent is a subscriber Handler that forwards the raw payload.
func (h *Hub) HandleEvent(event domain.Event, raw []byte) {
	n := h.Broadcast(raw)
	h.log.Debug("fanned out catalog event",
		logger.String("type", string(event.Type)),
		logger.Int("listeners", n),
	)
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// CloseAll closes every connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.connections
	h.connections = make(map[string]*Connection)
	h.mu.Unlock()

	for _, c := range conns {
		atomic.AddInt64(&h.totalUnregistered, 1)
		c.Close("server shutting down")
	}
}

// GetStats returns a snapshot of hub counters.
func (h *Hub) GetStats() HubStats {
	return HubStats{
		CurrentConnections: h.Count(),
		TotalRegistered:    atomic.LoadInt64(&h.totalRegistered),
		TotalUnregistered:  atomic.LoadInt64(&h.totalUnregistered),
	}
}
