package viewer

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gridforma/massing/internal/logging"
)

// ClientCountRecorder receives websocket client gauge updates.
type ClientCountRecorder interface {
	SetWSClients(n int)
}

// Hub tracks connected websocket clients and pushes dataset events to them.
// The push direction is one way; inbound client messages are drained and
// discarded.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool

	// writeMu serialises broadcasts; gorilla connections allow only one
	// concurrent writer.
	writeMu sync.Mutex

	log      logging.Logger
	metrics  ClientCountRecorder
	upgrader websocket.Upgrader
}

// NewHub returns an empty hub. metrics may be nil.
func NewHub(log logging.Logger, metrics ClientCountRecorder) *Hub {
	if log == nil {
		log = logging.Noop()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		log:     log,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and holds it open until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logging.String("error", err.Error()))
		return
	}
	h.add(conn)
	defer h.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Debug(r.Context(), "websocket read failed", logging.String("error", err.Error()))
			}
			return
		}
	}
}

// Broadcast sends one JSON event to every connected client. Clients that
// fail to receive are dropped.
func (h *Hub) Broadcast(ctx context.Context, event string, payload any) {
	msg := map[string]any{"type": event}
	if payload != nil {
		msg["payload"] = payload
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, c := range conns {
		if err := c.WriteJSON(msg); err != nil {
			h.log.Warn(ctx, "websocket send failed", logging.String("error", err.Error()))
			h.remove(c)
		}
	}
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.SetWSClients(n)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	conn.Close()
	if h.metrics != nil {
		h.metrics.SetWSClients(n)
	}
}
