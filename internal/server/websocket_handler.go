package server

import (
	"errors"
	"net/http"
	"strings"

	"intake-chat/internal/redis"
	"intake-chat/internal/services"
	"intake-chat/internal/transport/httpdto"
	intake_errors "intake-chat/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades HTTP requests onto the two socket surfaces.
type WebSocketHandler struct {
	registry *Registry
	auth     AuthResolver
	limiter  *redis.RateLimiter
	logger   *WebSocketLogger
}

func NewWebSocketHandler(registry *Registry, auth AuthResolver, limiter *redis.RateLimiter) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		auth:     auth,
		limiter:  limiter,
		logger:   NewWebSocketLogger(),
	}
}

// ConversationSocket joins a conversation's hub. Authentication happens via
// the auth frame after the upgrade, so the only hard precondition here is
// that the conversation exists.
func (h *WebSocketHandler) ConversationSocket(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "VALIDATION"))
		return
	}

	if !h.allowConnection(c) {
		return
	}

	hub, err := h.registry.ConversationHub(c.Request.Context(), conversationID)
	if err != nil {
		switch {
		case errors.Is(err, intake_errors.ErrNotFound):
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("conversation not found", "NOT_FOUND"))
		default:
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("conversation lookup failed", "STORAGE"))
		}
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "", err, zap.String("conversation_id", conversationID.String()))
		return
	}

	client := NewClient(hub, conn, h.extractCredentials(c), h.registry.Config(), h.logger)
	hub.Register(client)
}

// NotificationSocket joins the caller's notification hub. Identity comes
// from the upgrade credentials, never from the URL.
func (h *WebSocketHandler) NotificationSocket(c *gin.Context) {
	if !h.allowConnection(c) {
		return
	}

	credentials := h.extractCredentials(c)
	identity, err := h.auth.ResolveIdentity(c.Request.Context(), credentials)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("invalid credentials", "AUTH"))
		return
	}

	hub, err := h.registry.NotificationHub(identity.UserID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("shutting down", "UNAVAILABLE"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "", err, zap.String("user_id", identity.UserID.String()))
		return
	}

	client := NewClient(hub, conn, credentials, h.registry.Config(), h.logger)
	client.userID = identity.UserID
	client.anonymous = identity.IsAnonymous
	hub.Register(client)
}

func (h *WebSocketHandler) allowConnection(c *gin.Context) bool {
	if h.limiter == nil {
		return true
	}
	res, err := h.limiter.AllowConnection(c.Request.Context(), c.ClientIP())
	if err != nil {
		// Redis trouble should not take the chat down.
		h.logger.Warn("connection rate check failed", "", zap.Error(err))
		return true
	}
	if !res.Allowed {
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("connection rate limit exceeded", "RATE_LIMITED"))
		return false
	}
	return true
}

// extractCredentials captures whatever token the upgrade request carried.
// The auth frame may still override it.
func (h *WebSocketHandler) extractCredentials(c *gin.Context) services.Credentials {
	if token := c.Query("token"); token != "" {
		return services.Credentials{Token: token}
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return services.Credentials{Token: strings.TrimPrefix(auth, "Bearer ")}
	}
	if cookie, err := c.Cookie("intake_token"); err == nil {
		return services.Credentials{Token: cookie}
	}
	return services.Credentials{}
}
