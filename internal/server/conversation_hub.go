package server

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"intake-chat/internal/domain/message"
	"intake-chat/internal/services"
	"intake-chat/internal/transport/httpdto"
	intake_errors "intake-chat/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConversationHub is the single-goroutine actor owning one conversation's
// live connections. Every registration, frame and timeout funnels through
// its run loop, so handler code needs no locking.
type ConversationHub struct {
	ID uuid.UUID

	auth          AuthResolver
	messages      MessageStore
	conversations ConversationDirectory
	notifier      OfflineNotifier
	limiter       MessageLimiter
	cfg           HubConfig
	logger        *WebSocketLogger

	events   chan hubEvent
	stopChan chan struct{}
	done     chan struct{}

	clients   map[*Client]struct{}
	presence  map[*Client]PresenceEntry
	idleTimer *time.Timer
	onIdle    func()
	isRunning int32
}

func NewConversationHub(
	conversationID uuid.UUID,
	auth AuthResolver,
	messages MessageStore,
	conversations ConversationDirectory,
	notifier OfflineNotifier,
	limiter MessageLimiter,
	cfg HubConfig,
) *ConversationHub {
	return &ConversationHub{
		ID:            conversationID,
		auth:          auth,
		messages:      messages,
		conversations: conversations,
		notifier:      notifier,
		limiter:       limiter,
		cfg:           cfg,
		logger:        NewWebSocketLogger(),
		events:        make(chan hubEvent, 512),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
		clients:       make(map[*Client]struct{}),
		presence:      make(map[*Client]PresenceEntry),
	}
}

// Register hands a freshly upgraded connection to the hub.
func (h *ConversationHub) Register(c *Client) {
	h.post(hubEvent{kind: evRegister, client: c})
}

func (h *ConversationHub) deliver(c *Client, f Frame) {
	h.post(hubEvent{kind: evFrame, client: c, frame: f})
}

func (h *ConversationHub) disconnect(c *Client) {
	h.post(hubEvent{kind: evUnregister, client: c})
}

func (h *ConversationHub) post(ev hubEvent) {
	select {
	case h.events <- ev:
	case <-h.stopChan:
	}
}

// Run processes hub events until Stop. Exactly one goroutine runs it.
func (h *ConversationHub) Run() {
	atomic.StoreInt32(&h.isRunning, 1)
	defer atomic.StoreInt32(&h.isRunning, 0)

	h.idleTimer = time.NewTimer(h.cfg.EvictAfter)
	stopTimer(h.idleTimer)

	for {
		select {
		case ev := <-h.events:
			switch ev.kind {
			case evRegister:
				h.handleRegister(ev.client)
			case evUnregister:
				h.handleUnregister(ev.client)
			case evTimeout:
				h.handleHandshakeTimeout(ev.client)
			case evFrame:
				h.handleFrame(ev.client, ev.frame)
			}

		case <-h.idleTimer.C:
			if len(h.clients) == 0 && h.onIdle != nil {
				go h.onIdle()
			}

		case <-h.stopChan:
			h.closeAll()
			close(h.done)
			return
		}
	}
}

// Stop shuts the hub down and waits for the run loop to drain.
func (h *ConversationHub) Stop() {
	select {
	case <-h.stopChan:
		return
	default:
	}
	close(h.stopChan)
	<-h.done
}

func (h *ConversationHub) handleRegister(c *Client) {
	stopTimer(h.idleTimer)
	h.clients[c] = struct{}{}

	c.handshakeTimer = time.AfterFunc(h.cfg.HandshakeWindow, func() {
		h.post(hubEvent{kind: evTimeout, client: c})
	})

	if c.conn != nil {
		go c.writePump()
		go c.readPump()
	}
	h.logger.Info("client connected", c.id, zap.String("conversation_id", h.ID.String()))
}

func (h *ConversationHub) handleUnregister(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	delete(h.presence, c)
	c.close()
	h.logger.Info("client disconnected", c.id, zap.String("conversation_id", h.ID.String()))

	if len(h.clients) == 0 {
		h.idleTimer.Reset(h.cfg.EvictAfter)
	}
}

func (h *ConversationHub) handleHandshakeTimeout(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	if c.State() != StateConnecting {
		return
	}
	c.sendFrame(FrameAuthError, ErrorPayload{Code: CodeAuth, Reason: "handshake timeout"})
	h.handleUnregister(c)
}

func (h *ConversationHub) handleFrame(c *Client, f Frame) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	switch f.Type {
	case FrameAuth:
		h.handleAuth(c, f)
	case FramePing:
		c.sendFrame(FramePong, nil)
	case FrameMessageSend:
		h.handleMessageSend(c, f)
	case FrameReactionToggle:
		h.handleReactionToggle(c, f)
	default:
		c.sendError(intake_errors.ErrProtocol, "unknown frame type: "+f.Type)
	}
}

func (h *ConversationHub) handleAuth(c *Client, f Frame) {
	if c.State() != StateConnecting {
		c.sendError(intake_errors.ErrProtocol, "already authenticated")
		return
	}

	var payload AuthPayload
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		h.rejectAuth(c, "malformed auth payload")
		return
	}
	if payload.ProtocolVersion != ProtocolVersion {
		h.rejectAuth(c, "unsupported protocol version")
		return
	}

	credentials := c.credentials
	if payload.Token != "" {
		credentials.Token = payload.Token
	}

	ctx := context.Background()
	identity, err := h.auth.ResolveIdentity(ctx, credentials)
	if err != nil {
		h.rejectAuth(c, "invalid credentials")
		return
	}
	if err := h.auth.Authorize(ctx, h.ID, identity.UserID); err != nil {
		h.rejectAuth(c, "not a participant")
		return
	}

	c.userID = identity.UserID
	c.anonymous = identity.IsAnonymous
	if c.handshakeTimer != nil {
		c.handshakeTimer.Stop()
	}
	c.setState(StateAuthenticated)
	h.presence[c] = PresenceEntry{
		UserID:    identity.UserID,
		Anonymous: identity.IsAnonymous,
		JoinedAt:  time.Now(),
	}

	c.sendFrame(FrameAuthOK, AuthOKPayload{
		UserID:    identity.UserID.String(),
		Anonymous: identity.IsAnonymous,
	})
	h.logger.Info("client authenticated", c.id,
		zap.String("conversation_id", h.ID.String()),
		zap.String("user_id", identity.UserID.String()))
}

// rejectAuth sends auth.error and drops the connection. Auth failures are
// terminal; ordinary errors are not.
func (h *ConversationHub) rejectAuth(c *Client, reason string) {
	c.sendFrame(FrameAuthError, ErrorPayload{Code: CodeAuth, Reason: reason})
	h.handleUnregister(c)
}

func (h *ConversationHub) handleMessageSend(c *Client, f Frame) {
	entry, ok := h.presence[c]
	if !ok {
		// A data frame in the Connecting state is a protocol violation, not
		// a credentials problem.
		c.sendError(intake_errors.ErrProtocol, "authentication required")
		return
	}

	var payload MessageSendPayload
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		c.sendError(intake_errors.ErrProtocol, "malformed message.send payload")
		return
	}

	ctx := context.Background()
	if h.limiter != nil {
		res, err := h.limiter.AllowMessage(ctx, entry.UserID.String())
		if err == nil && !res.Allowed {
			c.sendError(intake_errors.ErrRateLimited, "message rate limit exceeded")
			return
		}
	}

	in := services.AppendMessageInput{
		ConversationID: h.ID,
		SenderID:       uuid.NullUUID{UUID: entry.UserID, Valid: true},
		Role:           message.RoleUser,
		Content:        payload.Content,
	}
	if payload.ReplyToMessageID != "" {
		parentID, err := uuid.Parse(payload.ReplyToMessageID)
		if err != nil {
			c.sendError(intake_errors.ErrInvalidInput, "invalid replyToMessageId")
			return
		}
		in.ReplyToMsgID = uuid.NullUUID{UUID: parentID, Valid: true}
	}

	msg, err := h.messages.Append(ctx, in)
	if err != nil {
		// Persistence failed: the sender alone hears about it.
		c.sendError(err, "message not accepted")
		return
	}

	h.broadcastFrame(FrameMessageNew, httpdto.FromMessage(msg))
	h.notifyOffline(entry.UserID)
}

func (h *ConversationHub) handleReactionToggle(c *Client, f Frame) {
	entry, ok := h.presence[c]
	if !ok {
		c.sendError(intake_errors.ErrProtocol, "authentication required")
		return
	}

	var payload ReactionTogglePayload
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		c.sendError(intake_errors.ErrProtocol, "malformed reaction.toggle payload")
		return
	}
	messageID, err := uuid.Parse(payload.MessageID)
	if err != nil {
		c.sendError(intake_errors.ErrInvalidInput, "invalid messageId")
		return
	}

	reactions, _, err := h.messages.ToggleReaction(context.Background(), h.ID, messageID, entry.UserID, payload.Emoji)
	if err != nil {
		c.sendError(err, "reaction not applied")
		return
	}

	h.broadcastFrame(FrameReactionUpdated, ReactionUpdatedPayload{
		MessageID: messageID.String(),
		Reactions: httpdto.FromReactions(reactions),
	})
}

// broadcastFrame fans an outbound frame to every authenticated connection.
func (h *ConversationHub) broadcastFrame(frameType string, data interface{}) {
	raw := encodeFrame(frameType, data)
	for c := range h.presence {
		c.sendRaw(raw)
	}
}

// notifyOffline records unread activity for participants with no live
// connection here. Best effort: a miss costs a badge, not a message.
func (h *ConversationHub) notifyOffline(senderID uuid.UUID) {
	if h.notifier == nil {
		return
	}

	participants, err := h.conversations.GetParticipants(context.Background(), h.ID)
	if err != nil {
		h.logger.Warn("participant lookup for notify failed", "", zap.Error(err))
		return
	}

	online := make(map[uuid.UUID]bool, len(h.presence))
	for _, entry := range h.presence {
		online[entry.UserID] = true
	}

	for _, p := range participants {
		if p.UserID == senderID || online[p.UserID] {
			continue
		}
		h.notifier.NotifyUnread(p.UserID, h.ID.String())
	}
}

func (h *ConversationHub) closeAll() {
	for c := range h.clients {
		c.close()
	}
	h.clients = make(map[*Client]struct{})
	h.presence = make(map[*Client]PresenceEntry)
}
