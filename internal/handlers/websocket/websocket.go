// internal/handlers/websocket/websocket.go
package websocket

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/pkg/response"
	ws "github.com/andre-sav/panopticon/internal/websocket"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	logger   *zap.Logger
	upgrader gorilla.Upgrader
}

// NewWebSocketHandler builds the upgrade handler. allowedOrigins
// restricts browser connections; empty means same-host only, which is
// the single-operator default.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
	h.upgrader = gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// HandleConnection upgrades the request and hands the connection to
// the hub. Authentication, when enabled, already happened in the auth
// middleware via the token query parameter.
// GET /ws
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed",
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		return
	}

	h.hub.Serve(conn)
}

// GetStats reports how many dashboards are connected.
// GET /api/v1/ws/stats
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "websocket stats", gin.H{
		"connections": h.hub.Connected(),
		"timestamp":   time.Now().UTC(),
	})
}

// originChecker allows requests with no Origin header (non-browser
// clients) and browser requests from a configured origin. With no
// configured origins only same-host browser connections pass, which
// gorilla checks by default.
func originChecker(allowedOrigins []string) func(*http.Request) bool {
	if len(allowedOrigins) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin] || allowed["*"]
	}
}
