package handler

import (
	"net/http"

	"intake-chat/internal/middleware"
	"intake-chat/internal/services"
	"intake-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// NotificationHandler is the REST fallback for unread counters; the socket
// surface handles the live path.
type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// Unread lists the caller's unread counters.
func (h *NotificationHandler) Unread(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	counters, err := h.notifications.Counters(c.Request.Context(), userID)
	if err != nil {
		status, code := middleware.StatusForError(err)
		c.JSON(status, httpdto.NewErrorResponse("counter lookup failed", code))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromUnreadCounters(counters)))
}

// MarkRead zeroes one of the caller's counters. Idempotent.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request body", "VALIDATION"))
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), userID, req.Category); err != nil {
		status, code := middleware.StatusForError(err)
		c.JSON(status, httpdto.NewErrorResponse("mark read failed", code))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadCounterResponse{
		Category: req.Category,
		Count:    0,
	}))
}
