// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	gorilla "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/lead"
)

// Hub fans events out to every connected dashboard. The clients map
// is owned by the Run goroutine; everything else talks to it through
// channels.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	connected atomic.Int32
	logger    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case payload := <-h.broadcast:
			h.fanOut(payload)
		}
	}
}

// Serve hands a freshly upgraded connection to the hub and starts its
// pumps.
func (h *Hub) Serve(conn *gorilla.Conn) {
	client := newClient(h, conn)
	select {
	case h.register <- client:
		go client.writePump()
		go client.readPump()
	case <-h.done:
		_ = conn.Close()
	}
}

// Connected is the number of open dashboard connections.
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

// ========== refresh.Notifier ==========

func (h *Hub) BroadcastRefreshStarted() {
	h.broadcastEvent(EventRefreshStarted, nil)
}

func (h *Hub) BroadcastRefreshCompleted(counts lead.StatusCounts, at time.Time) {
	h.broadcastEvent(EventRefreshCompleted, map[string]any{
		"counts":       counts,
		"refreshed_at": at,
	})
}

func (h *Hub) BroadcastRefreshFailed(kind, message string) {
	h.broadcastEvent(EventRefreshFailed, map[string]any{
		"kind":    kind,
		"message": message,
	})
}

func (h *Hub) broadcastEvent(eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, At: time.Now().UTC(), Data: data})
	if err != nil {
		h.logger.Warn("failed to marshal event", zap.String("event", eventType), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.done:
	default:
		// The hub is backed up; refresh events are advisory, drop it.
		h.logger.Warn("event dropped, broadcast queue full", zap.String("event", eventType))
	}
}

// ========== Run-goroutine internals ==========

func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	h.connected.Store(int32(len(h.clients)))
	h.logger.Info("dashboard connected", zap.Int("total", len(h.clients)))

	if payload, err := json.Marshal(Event{Type: EventConnected, At: time.Now().UTC()}); err == nil {
		client.enqueue(payload)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.connected.Store(int32(len(h.clients)))
	h.logger.Info("dashboard disconnected", zap.Int("total", len(h.clients)))
}

func (h *Hub) fanOut(payload []byte) {
	for client := range h.clients {
		if !client.enqueue(payload) {
			// A client that cannot keep up is cut loose rather than
			// allowed to stall the others.
			delete(h.clients, client)
			close(client.send)
		}
	}
	h.connected.Store(int32(len(h.clients)))
}

func (h *Hub) shutdown() {
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.connected.Store(0)
}
