// internal/app/router.go
package app

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authHandler "github.com/andre-sav/panopticon/internal/handlers/auth"
	leadsHandler "github.com/andre-sav/panopticon/internal/handlers/leads"
	snapshotHandler "github.com/andre-sav/panopticon/internal/handlers/snapshots"
	wsHandler "github.com/andre-sav/panopticon/internal/handlers/websocket"
	"github.com/andre-sav/panopticon/internal/middleware"
)

type Handlers struct {
	AuthHandler     *authHandler.AuthHandler
	LeadsHandler    *leadsHandler.LeadsHandler
	SnapshotHandler *snapshotHandler.SnapshotHandler
	WSHandler       *wsHandler.WebSocketHandler

	// AuthMiddleware is nil when no dashboard password is configured,
	// in which case every route runs open.
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	// ==================== Operational ====================
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	protected := func(group *gin.RouterGroup) *gin.RouterGroup {
		if h.AuthMiddleware != nil {
			group.Use(h.AuthMiddleware.Auth())
		}
		return group
	}

	// ==================== Auth ====================
	if h.AuthHandler != nil {
		api.POST("/auth/login", h.AuthHandler.Login)

		authProtected := protected(api.Group("/auth"))
		{
			authProtected.POST("/logout", h.AuthHandler.Logout)
		}
	}

	// ==================== Leads board ====================
	leads := protected(api.Group("/leads"))
	{
		leads.GET("", h.LeadsHandler.GetBoard)
		leads.POST("/refresh", h.LeadsHandler.Refresh)
		leads.GET("/options", h.LeadsHandler.GetOptions)
		leads.GET("/transitions", h.LeadsHandler.GetTransitions)
		leads.GET("/:id/history", h.LeadsHandler.GetHistory)
	}

	// ==================== Trend snapshots ====================
	trend := protected(api.Group("/snapshots"))
	{
		trend.GET("", h.SnapshotHandler.GetTrend)
	}

	// ==================== WebSocket ====================
	if h.AuthMiddleware != nil {
		// Browsers cannot set headers on the upgrade request; the
		// middleware falls back to the token query parameter.
		r.GET("/ws", h.AuthMiddleware.Auth(), h.WSHandler.HandleConnection)
	} else {
		r.GET("/ws", h.WSHandler.HandleConnection)
	}
	wsStats := protected(api.Group("/ws"))
	{
		wsStats.GET("/stats", h.WSHandler.GetStats)
	}
}
