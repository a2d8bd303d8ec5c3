package main

import (
	"log"
	"time"

	"intake-chat/config"
	"intake-chat/internal/handler"
	intakeredis "intake-chat/internal/redis"
	"intake-chat/internal/repository"
	"intake-chat/internal/server"
	"intake-chat/internal/services"
	"intake-chat/pkg/database"
	"intake-chat/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)
	zap.ReplaceGlobals(l.Logger)
	defer l.Logger.Sync()

	database.Connect(cfg)
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis backs rate limiting only; run degraded without it.
	var rateLimiter *intakeredis.RateLimiter
	redisClient, err := intakeredis.NewClient(intakeredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		l.Warnf("Redis unavailable, rate limiting disabled: %s", err)
	} else {
		rateLimiter = intakeredis.NewRateLimiter(redisClient, intakeredis.DefaultRateLimitConfig())
	}

	conversationRepo := repository.NewConversationRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)
	notificationRepo := repository.NewNotificationRepository(database.DB)

	authService := services.NewAuthService(cfg.JWTSecret, conversationRepo)
	conversationService := services.NewConversationService(database.DB, conversationRepo)
	messageService := services.NewMessageService(database.DB, messageRepo, conversationRepo, cfg.MaxMessageBytes)
	notificationService := services.NewNotificationService(notificationRepo)

	hubConfig := server.DefaultHubConfig()
	hubConfig.HandshakeWindow = secondsOrDefault(cfg.HandshakeWindowSec, hubConfig.HandshakeWindow)
	hubConfig.IdleWindow = secondsOrDefault(cfg.IdleWindowSec, hubConfig.IdleWindow)
	if cfg.MaxMessageBytes > 0 {
		hubConfig.MaxMessageBytes = int64(cfg.MaxMessageBytes)
	}

	deps := server.HubDeps{
		Auth:          authService,
		Messages:      messageService,
		Conversations: conversationService,
		Counters:      notificationService,
		Config:        hubConfig,
	}
	if rateLimiter != nil {
		deps.Limiter = rateLimiter
	}
	registry := server.NewRegistry(deps)

	srv := server.New(cfg, l, registry)
	srv.SetupRoutes(&server.Handlers{
		Conversation: handler.NewConversationHandler(conversationService, messageService, authService, cfg.PageSizeDefault, cfg.PageSizeMax),
		Notification: handler.NewNotificationHandler(notificationService),
		WebSocket:    server.NewWebSocketHandler(registry, authService, rateLimiter),
	}, authService, rateLimiter)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

func secondsOrDefault(sec int, fallback time.Duration) time.Duration {
	if sec <= 0 {
		return fallback
	}
	return time.Duration(sec) * time.Second
}
