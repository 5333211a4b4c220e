// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/config"
	"github.com/andre-sav/panopticon/internal/db"
	authHandler "github.com/andre-sav/panopticon/internal/handlers/auth"
	leadsHandler "github.com/andre-sav/panopticon/internal/handlers/leads"
	snapshotHandler "github.com/andre-sav/panopticon/internal/handlers/snapshots"
	wsHandler "github.com/andre-sav/panopticon/internal/handlers/websocket"
	"github.com/andre-sav/panopticon/internal/integration/zoho"
	"github.com/andre-sav/panopticon/internal/middleware"
	"github.com/andre-sav/panopticon/internal/pkg/jwt"
	"github.com/andre-sav/panopticon/internal/pkg/session"
	"github.com/andre-sav/panopticon/internal/pkg/snapshot"
	"github.com/andre-sav/panopticon/internal/repository/cache"
	"github.com/andre-sav/panopticon/internal/repository/postgres"
	authService "github.com/andre-sav/panopticon/internal/service/auth"
	dashboardService "github.com/andre-sav/panopticon/internal/service/dashboard"
	deliveryService "github.com/andre-sav/panopticon/internal/service/delivery"
	historyService "github.com/andre-sav/panopticon/internal/service/history"
	leadsService "github.com/andre-sav/panopticon/internal/service/leads"
	notesService "github.com/andre-sav/panopticon/internal/service/notes"
	refreshService "github.com/andre-sav/panopticon/internal/service/refresh"
	"github.com/andre-sav/panopticon/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpServer  *http.Server
	redisClient *redis.Client
	pgPool      *pgxpool.Pool
	stopHub     context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)
	return &Server{cfg: cfg, engine: gin.New()}
}

// Start wires every component and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       s.cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.redisClient = redisClient
	logger.Info("connected to redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- PostgreSQL (optional, trend snapshots only) -----
	var snapshotRepo *postgres.SnapshotRepository
	if s.cfg.PostgresURL != "" {
		pool, err := db.ConnectPostgres(ctx, s.cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		s.pgPool = pool
		snapshotRepo = postgres.NewSnapshotRepository(pool)
		if err := snapshotRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare snapshot schema: %w", err)
		}
		logger.Info("connected to postgres, trend snapshots enabled")
	} else {
		logger.Warn("DATABASE_URL not set, trend snapshots disabled")
	}

	// ----- Zoho CRM client -----
	zohoClient := zoho.NewClient(zoho.Config{
		ClientID:     s.cfg.ZohoClientID,
		ClientSecret: s.cfg.ZohoClientSecret,
		RefreshToken: s.cfg.ZohoRefreshToken,
		AccountsURL:  s.cfg.ZohoAccountsURL,
		APIDomain:    s.cfg.ZohoAPIDomain,
	}, logger)

	// ----- Caches -----
	leadsCache := cache.NewLeadsCache(redisClient, logger)
	historyCache := cache.NewHistoryCache(redisClient, logger)
	notesCache := cache.NewNotesCache(redisClient, logger)
	deliveriesCache := cache.NewDeliveriesCache(redisClient, logger)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	s.stopHub = stopHub
	go hub.Run(hubCtx)
	middleware.RegisterDashboardConnections(hub.Connected)

	// ----- Services -----
	store := snapshot.NewStore()
	leadsSvc := leadsService.NewService(logger, nil)
	historySvc := historyService.NewHistoryService(zohoClient, historyCache, logger)
	notesSvc := notesService.NewNotesService(zohoClient, notesCache, logger)
	deliverySvc := deliveryService.NewDeliveryService(zohoClient, deliveriesCache, logger)

	var snapshotWriter refreshService.SnapshotWriter
	if snapshotRepo != nil {
		snapshotWriter = snapshotRepo
	}
	refreshSvc := refreshService.NewRefreshService(
		zohoClient,
		leadsCache,
		store,
		leadsSvc,
		snapshotWriter,
		hub,
		logger,
	)
	dashboardSvc := dashboardService.NewDashboardService(
		store,
		leadsSvc,
		historySvc,
		notesSvc,
		deliverySvc,
		logger,
	)

	// ----- Auth (optional: no password hash means an open board) -----
	var authMw *middleware.AuthMiddleware
	var authH *authHandler.AuthHandler
	if s.cfg.AuthEnabled() {
		if s.cfg.JWTSecret == "" {
			return fmt.Errorf("DASHBOARD_PASSWORD_HASH is set but JWT_SECRET is empty")
		}
		jwtManager := jwt.NewManager(s.cfg.JWTSecret, "panopticon", s.cfg.SessionTTL)
		blacklist := session.NewTokenBlacklist(redisClient)
		limiter := session.NewLoginLimiter(redisClient)
		authSvc := authService.NewAuthService(
			s.cfg.DashboardUser,
			s.cfg.DashboardPasswordHash,
			jwtManager,
			limiter,
			blacklist,
			logger,
		)
		authMw = middleware.NewAuthMiddleware(jwtManager, blacklist, logger)
		authH = authHandler.NewAuthHandler(authSvc, logger)
	} else {
		logger.Warn("no dashboard password configured, running without authentication")
	}

	// ----- Handlers -----
	leadsH := leadsHandler.NewLeadsHandler(dashboardSvc, refreshSvc, historySvc, logger)
	var snapshotLister snapshotHandler.Lister
	if snapshotRepo != nil {
		snapshotLister = snapshotRepo
	}
	snapshotsH := snapshotHandler.NewSnapshotHandler(snapshotLister, logger)
	wsH := wsHandler.NewWebSocketHandler(hub, s.cfg.CORSOrigins, logger)

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.CORSOrigins),
		middleware.Metrics(),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		AuthHandler:     authH,
		LeadsHandler:    leadsH,
		SnapshotHandler: snapshotsH,
		WSHandler:       wsH,
		AuthMiddleware:  authMw,
	})

	// Seed the snapshot in the background so the first board request
	// after a restart does not pay for a full Zoho round trip. Board
	// requests before this finishes get the "no data yet" response.
	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := refreshSvc.Warm(warmCtx); err != nil {
			logger.Warn("initial snapshot warm failed", zap.Error(err))
		}
	}()

	// ----- Start HTTP -----
	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}
	logger.Info("🚀 server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener, the websocket hub and the storage
// connections, in that order.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			firstErr = err
		}
	}

	if s.stopHub != nil {
		s.stopHub()
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.pgPool != nil {
		s.pgPool.Close()
	}

	return firstErr
}
