package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// JobUpdate is pushed to every connected client as a JSON text message.
type JobUpdate struct {
	Type       string `json:"type"` // "job_queued", "job_start", "progress", "job_complete", "job_failed"
	JobID      string `json:"job_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Sheet      string `json:"sheet,omitempty"`
	SheetIndex int    `json:"sheet_index,omitempty"`
	Sheets     int    `json:"sheets,omitempty"`
	Rows       int    `json:"rows,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Hub struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	slog.Info("Progress client connected", "total_connections", len(h.clients))
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		slog.Info("Progress client disconnected", "total_connections", len(h.clients))
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends update to all clients, dropping any that fail to receive it.
func (h *Hub) Broadcast(update JobUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload, err := json.Marshal(update)
	if err != nil {
		slog.Error("Encode job update failed", "error", err)
		return
	}
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Error("Broadcast failed", "error", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
