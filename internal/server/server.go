package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intake-chat/config"
	"intake-chat/internal/handler"
	"intake-chat/internal/middleware"
	"intake-chat/internal/redis"
	"intake-chat/internal/services"
	"intake-chat/internal/transport/httpdto"
	"intake-chat/pkg/database"
	"intake-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	registry   *Registry
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Conversation *handler.ConversationHandler
	Notification *handler.NotificationHandler
	WebSocket    *WebSocketHandler
}

func New(cfg *config.Config, l *logger.Logger, registry *Registry) *Server {
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
		engine:   engine,
		config:   cfg,
		logger:   l,
		registry: registry,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, limiter *redis.RateLimiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	api := s.engine.Group("/api")
	if limiter != nil {
		api.Use(middleware.RateLimitMiddleware(limiter))
	}

	// Socket endpoints authenticate via the auth frame, not middleware.
	api.GET("/conversations/:id/ws", handlers.WebSocket.ConversationSocket)
	api.GET("/notifications/ws", handlers.WebSocket.NotificationSocket)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(authService))
	{
		authed.POST("/conversations", handlers.Conversation.Create)
		authed.GET("/conversations/:id", handlers.Conversation.Get)
		authed.PATCH("/conversations/:id", handlers.Conversation.Update)
		authed.POST("/conversations/:id/participants", handlers.Conversation.AddParticipants)
		authed.GET("/notifications/unread", handlers.Notification.Unread)
		authed.POST("/notifications/read", handlers.Notification.MarkRead)
	}
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

	if s.registry != nil {
		s.registry.Shutdown()
	}

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
