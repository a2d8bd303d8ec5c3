package handler

import (
	"net/http"
	"strconv"

	"intake-chat/internal/middleware"
	"intake-chat/internal/services"
	"intake-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConversationHandler serves the REST fallback for conversation access.
// Live traffic runs over the socket; these endpoints cover reads, intake
// entry and staff management.
type ConversationHandler struct {
	conversations *services.ConversationService
	messages      *services.MessageService
	auth          *services.AuthService

	pageSizeDefault int
	pageSizeMax     int
}

func NewConversationHandler(
	conversations *services.ConversationService,
	messages *services.MessageService,
	auth *services.AuthService,
	pageSizeDefault, pageSizeMax int,
) *ConversationHandler {
	if pageSizeDefault <= 0 {
		pageSizeDefault = 50
	}
	if pageSizeMax <= 0 {
		pageSizeMax = 200
	}
	return &ConversationHandler{
		conversations:   conversations,
		messages:        messages,
		auth:            auth,
		pageSizeDefault: pageSizeDefault,
		pageSizeMax:     pageSizeMax,
	}
}

// Create finds or starts the caller's intake conversation with a practice.
func (h *ConversationHandler) Create(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request body", "VALIDATION"))
		return
	}
	practiceID, err := uuid.Parse(req.PracticeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid practiceId", "VALIDATION"))
		return
	}

	conv, err := h.conversations.GetOrCreate(c.Request.Context(), practiceID, userID)
	if err != nil {
		status, code := middleware.StatusForError(err)
		c.JSON(status, httpdto.NewErrorResponse("conversation lookup failed", code))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversation(conv)))
}

// Get returns a conversation with a cursor-paged slice of its history.
func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "VALIDATION"))
		return
	}

	if err := h.auth.Authorize(c.Request.Context(), conversationID, userID); err != nil {
		status, code := middleware.StatusForError(err)
		c.JSON(status, httpdto.NewErrorResponse("access denied", code))
		return
	}

	conv, err := h.conversations.GetByID(c.Request.Context(), conversationID)
	if err != nil {
		status, code := middleware.StatusForError(err)
		c.JSON(status, httpdto.NewErrorResponse("conversation not found", code))
		return
	}

	limit := h.pageSizeDefault
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", "VALIDATION"))
			return
		}
		if parsed > h.pageSizeMax {
			parsed = h.pageSizeMax
		}
		limit = parsed
	}

	messages, nextCursor, err := h.messages.List(c.Request.Context(), conversationID, c.Query("cursor"), limit)
	if err != nil {
		status, code := middleware.StatusForError(err)
		c.JSON(status, httpdto.NewErrorResponse("message listing failed", code))
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ConversationDetail{
		Conversation: httpdto.FromConversation(conv),
		Messages:     httpdto.FromMessages(messages),
		NextCursor:   nextCursor,
	}))
}

// Update patches a conversation's status and/or metadata.
func (h *ConversationHandler) Update(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "VALIDATION"))
		return
	}

	var req httpdto.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request body", "VALIDATION"))
		return
	}
	if req.Status == "" && len(req.Metadata) == 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("nothing to update", "VALIDATION"))
		return
	}

	if err := h.auth.Authorize(c.Request.Context(), conversationID, userID); err != nil {
		status, code := middleware.StatusForError(err)
		c.JSON(status, httpdto.NewErrorResponse("access denied", code))
		return
	}

	if req.Status != "" {
		if err := h.conversations.UpdateStatus(c.Request.Context(), conversationID, req.Status); err != nil {
			status, code := middleware.StatusForError(err)
			c.JSON(status, httpdto.NewErrorResponse("status update failed", code))
			return
		}
	}
	if len(req.Metadata) > 0 {
		if err := h.conversations.UpdateMetadata(c.Request.Context(), conversationID, string(req.Metadata)); err != nil {
			status, code := middleware.StatusForError(err)
			c.JSON(status, httpdto.NewErrorResponse("metadata update failed", code))
			return
		}
	}

	conv, err := h.conversations.GetByID(c.Request.Context(), conversationID)
	if err != nil {
		status, code := middleware.StatusForError(err)
		c.JSON(status, httpdto.NewErrorResponse("conversation not found", code))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversation(conv)))
}

// AddParticipants joins additional users to a conversation.
func (h *ConversationHandler) AddParticipants(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "VALIDATION"))
		return
	}

	var req httpdto.AddParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request body", "VALIDATION"))
		return
	}
	userIDs := make([]uuid.UUID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid userId: "+raw, "VALIDATION"))
			return
		}
		userIDs = append(userIDs, id)
	}

	if err := h.conversations.AddParticipants(c.Request.Context(), conversationID, userID, userIDs); err != nil {
		status, code := middleware.StatusForError(err)
		c.JSON(status, httpdto.NewErrorResponse("participant update failed", code))
		return
	}

	participants, err := h.conversations.GetParticipants(c.Request.Context(), conversationID)
	if err != nil {
		status, code := middleware.StatusForError(err)
		c.JSON(status, httpdto.NewErrorResponse("participant listing failed", code))
		return
	}
	out := make([]httpdto.ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		out = append(out, httpdto.FromParticipant(p))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(out))
}
