package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/config"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/handler"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/middleware"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/redis"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/websocket"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Device       *handler.DeviceHandler
	User         *handler.UserHandler
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Pairing      *handler.PairingHandler
	Backup       *handler.BackupHandler
	WebSocket    *websocket.Handler
}

// Dependencies are the shared collaborators the route table needs besides
// the handlers. Limiter may be nil, which disables rate limiting.
type Dependencies struct {
	Auth        middleware.Authenticator
	Limiter     *redis.RateLimiter
	HealthCheck func() error
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router, mainly for tests driving it through httptest.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, deps Dependencies) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	authRequired := middleware.AuthMiddleware(deps.Auth)

	auth := s.engine.Group("/v1/auth", middleware.AuthRateLimitMiddleware(deps.Limiter))
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	devices := s.engine.Group("/v1/devices", authRequired)
	{
		devices.POST("", handlers.Device.Register)
		devices.GET("", handlers.Device.ListMine)
		devices.GET("/:id", handlers.Device.Get)
		devices.DELETE("/:id", handlers.Device.Deactivate)
		devices.POST("/:id/reactivate", handlers.Device.Reactivate)
		devices.POST("/:id/revoke", handlers.Device.Revoke)
	}

	users := s.engine.Group("/v1/users", authRequired)
	{
		users.GET("/me", handlers.User.Me)
		users.GET("/lookup", handlers.User.Lookup)
		users.GET("/:id", handlers.User.GetByID)
		users.GET("/:id/devices", handlers.Device.ListForUser)
		users.GET("/:id/presence", handlers.User.Presence)
	}

	conversations := s.engine.Group("/v1/conversations", authRequired)
	{
		conversations.POST("", handlers.Conversation.Create)
		conversations.GET("", handlers.Conversation.List)
		conversations.GET("/:id", handlers.Conversation.GetByID)
		conversations.POST("/:id/messages", middleware.MessageRateLimitMiddleware(deps.Limiter), handlers.Message.Send)
		conversations.GET("/:id/messages", handlers.Message.List)
	}

	pairing := s.engine.Group("/v1/pairing")
	{
		pairing.POST("/tokens", authRequired, handlers.Pairing.Issue)
		pairing.DELETE("/tokens", authRequired, handlers.Pairing.Invalidate)
		pairing.POST("/redeem", middleware.PairingRateLimitMiddleware(deps.Limiter), handlers.Pairing.Redeem)
	}

	backups := s.engine.Group("/v1/backups", authRequired)
	{
		backups.POST("/upload-url", handlers.Backup.UploadURL)
		backups.GET("/download-url", handlers.Backup.DownloadURL)
	}

	s.engine.GET("/v1/ws", handlers.WebSocket.Handle)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
