package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"waste_ops_backend/internal/config"
	"waste_ops_backend/internal/identity"
	"waste_ops_backend/internal/jobs"
	"waste_ops_backend/internal/middleware"
	"waste_ops_backend/internal/platform/telemetry"
	"waste_ops_backend/internal/user"
	"waste_ops_backend/internal/usersync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StartupRunner runs the gated startup reconciliation.
type StartupRunner interface {
	RunStartup(ctx context.Context) (usersync.SyncOutcome, error)
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	startup     StartupRunner
	userSyncJob *jobs.UserSyncJob
	telemetry   *telemetry.Provider

	mu            sync.Mutex
	cancelStartup context.CancelFunc
	startupDone   chan struct{}
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	verifier identity.TokenVerifier,
	userService user.Service,
	userHandler *user.Handler,
	syncHandler *usersync.Handler,
	startup StartupRunner,
	userSyncJob *jobs.UserSyncJob,
	telemetryProvider *telemetry.Provider,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(verifier, userService, logger.Named("AuthMiddleware"))
	adminRoleMW := middleware.RoleAuthMiddleware(string(user.RoleAdmin))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Waste ops API is healthy!"})
	})
	if telemetryProvider != nil && telemetryProvider.Handler() != nil {
		router.GET("/metrics", gin.WrapH(telemetryProvider.Handler()))
	}

	v1 := router.Group("/api/v1")
	userHandler.RegisterRoutes(v1, authMW, adminRoleMW)
	syncHandler.RegisterRoutes(v1, authMW, adminRoleMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // manual sync can outlast any fixed write deadline
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:  httpServer,
		router:      router,
		cfg:         cfg,
		logger:      logger,
		startup:     startup,
		userSyncJob: userSyncJob,
		telemetry:   telemetryProvider,
	}, nil
}

// Router exposes the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start launches background work and then blocks serving HTTP.
func (s *Server) Start() error {
	s.startBackground()

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

// startBackground kicks off the startup sync without blocking the listener
// and starts the periodic job.
func (s *Server) startBackground() {
	if s.cfg.UserSyncOnStartup && s.startup != nil {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		s.mu.Lock()
		s.cancelStartup = cancel
		s.startupDone = done
		s.mu.Unlock()

		go func() {
			defer close(done)
			// RunStartup logs its own outcome.
			_, _ = s.startup.RunStartup(ctx)
		}()
	} else {
		s.logger.Info("Startup user sync disabled (USER_SYNC_ON_STARTUP=false)")
	}

	if s.userSyncJob != nil {
		if err := s.userSyncJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start user sync job", zap.Error(err))
		}
	}
}

// Shutdown stops accepting requests, abandons a pending readiness wait and
// stops the scheduler. A reconciliation already in progress is waited for
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")

	s.mu.Lock()
	cancel, done := s.cancelStartup, s.startupDone
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("Startup user sync still running at shutdown")
		}
	}

	if s.userSyncJob != nil {
		s.userSyncJob.Stop()
	}

	err := s.httpServer.Shutdown(ctx)
	if s.telemetry != nil {
		_ = s.telemetry.Shutdown(ctx)
	}
	return err
}
