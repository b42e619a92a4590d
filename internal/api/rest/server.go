package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/motionforge/motioncore/internal/api/websocket"
	"github.com/motionforge/motioncore/internal/auth"
	"github.com/motionforge/motioncore/internal/config"
	"github.com/motionforge/motioncore/internal/interfaces"
	"github.com/motionforge/motioncore/internal/trajectory"
)

type Server struct {
	router      *gin.Engine
	lm          interfaces.LifecycleManager
	logger      *zap.Logger
	server      *http.Server
	wsHub       *websocket.Hub
	authService *auth.Service
	validator   *trajectory.Validator
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub, authService *auth.Service) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	validator, err := trajectory.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create trajectory validator: %w", err)
	}

	s := &Server{
		router:      gin.New(),
		lm:          lm,
		logger:      logger,
		wsHub:       wsHub,
		authService: authService,
		validator:   validator,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	// Public routes (no auth required)
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		// ==================== AUTH ENDPOINTS (PUBLIC) ====================
		authPublic := v1.Group("/auth")
		{
			authPublic.POST("/login", s.login)
			authPublic.POST("/refresh", s.refreshToken)
		}

		// ==================== AUTH ENDPOINTS (AUTHENTICATED) ====================
		authProtected := v1.Group("/auth")
		authProtected.Use(s.authService.Middleware())
		{
			authProtected.POST("/logout", s.logout)
			authProtected.GET("/me", s.getCurrentUser)
		}

		// ==================== USER MANAGEMENT (ADMIN ONLY) ====================
		users := v1.Group("/users")
		users.Use(s.authService.Middleware())
		users.Use(auth.RequirePermission(auth.PermAdmin))
		{
			users.POST("", s.createUser)
		}

		// ==================== TRAJECTORIES ====================
		trajectories := v1.Group("/trajectories")
		trajectories.Use(s.authService.Middleware())
		{
			// Read & Execute: Operator+
			trajectories.GET("", auth.RequirePermission(auth.PermOperator), s.listTrajectories)
			trajectories.GET("/:id", auth.RequirePermission(auth.PermOperator), s.getTrajectory)
			trajectories.POST("/:id/execute", auth.RequirePermission(auth.PermOperator), s.executeTrajectory)

			// Validate without saving: Technician+
			trajectories.POST("/validate", auth.RequirePermission(auth.PermTechnician), s.validateTrajectory)

			// Modify: Technician+
			trajectories.POST("", auth.RequirePermission(auth.PermTechnician), s.createTrajectory)
			trajectories.POST("/import", auth.RequirePermission(auth.PermTechnician), s.importTrajectory)
			trajectories.PUT("/:id", auth.RequirePermission(auth.PermTechnician), s.updateTrajectory)
			trajectories.DELETE("/:id", auth.RequirePermission(auth.PermTechnician), s.deleteTrajectory)
		}

		// ==================== EXECUTIONS (OPERATOR+) ====================
		executions := v1.Group("/executions")
		executions.Use(s.authService.Middleware())
		executions.Use(auth.RequirePermission(auth.PermOperator))
		{
			executions.GET("/:id", s.getExecution)
			executions.GET("/:id/events", s.getExecutionEvents)
		}

		// ==================== MOTION CONTROL (OPERATOR+) ====================
		motionGroups := v1.Group("/motion")
		motionGroups.Use(s.authService.Middleware())
		motionGroups.Use(auth.RequirePermission(auth.PermOperator))
		{
			motionGroups.GET("", s.listMotionGroups)
			motionGroups.GET("/:group/status", s.getMotionStatus)
			motionGroups.POST("/:group/pause", s.pauseMotion)
			motionGroups.POST("/:group/resume", s.resumeMotion)
			motionGroups.POST("/:group/fail", s.failMotion)
		}

		// ==================== SYSTEM ====================
		system := v1.Group("/system")
		system.Use(s.authService.Middleware())
		{
			system.GET("/status", auth.RequirePermission(auth.PermOperator), s.getSystemStatus)
			system.POST("/shutdown", auth.RequirePermission(auth.PermAdmin), s.shutdown)
		}

		// ==================== WEBSOCKET (PUBLIC - Auth via first message) ====================
		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
			ws.GET("/status", s.authService.Middleware(), auth.RequirePermission(auth.PermOperator), s.wsStatus)
		}
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
