// internal/websocket/event.go

// Package websocket pushes refresh lifecycle events to connected
// dashboards so an open board updates without polling. Traffic is
// one-way: the dashboard never sends events, its read side only keeps
// the connection alive.
package websocket

import "time"

// Event types pushed to dashboards.
const (
	EventConnected        = "connected"
	EventRefreshStarted   = "refresh_started"
	EventRefreshCompleted = "refresh_completed"
	EventRefreshFailed    = "refresh_failed"
)

// Event is one server push.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}
