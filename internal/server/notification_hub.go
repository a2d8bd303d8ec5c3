package server

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	intake_errors "intake-chat/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationHub is the single-goroutine actor owning one user's
// notification sockets. Identity is fixed at upgrade time; the auth frame
// only confirms it.
type NotificationHub struct {
	UserID uuid.UUID

	auth     AuthResolver
	counters UnreadCounterStore
	cfg      HubConfig
	logger   *WebSocketLogger

	events   chan hubEvent
	pushes   chan UnreadUpdatedPayload
	stopChan chan struct{}
	done     chan struct{}

	clients   map[*Client]struct{}
	authed    map[*Client]struct{}
	idleTimer *time.Timer
	onIdle    func()
	isRunning int32
}

func NewNotificationHub(userID uuid.UUID, auth AuthResolver, counters UnreadCounterStore, cfg HubConfig) *NotificationHub {
	return &NotificationHub{
		UserID:     userID,
		auth:       auth,
		counters:   counters,
		cfg:        cfg,
		logger:     NewWebSocketLogger(),
		events:     make(chan hubEvent, 512),
		pushes:     make(chan UnreadUpdatedPayload, 256),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		authed:     make(map[*Client]struct{}),
	}
}

func (h *NotificationHub) Register(c *Client) {
	h.post(hubEvent{kind: evRegister, client: c})
}

func (h *NotificationHub) deliver(c *Client, f Frame) {
	h.post(hubEvent{kind: evFrame, client: c, frame: f})
}

func (h *NotificationHub) disconnect(c *Client) {
	h.post(hubEvent{kind: evUnregister, client: c})
}

func (h *NotificationHub) post(ev hubEvent) {
	select {
	case h.events <- ev:
	case <-h.stopChan:
	}
}

// PushUnreadDelta durably bumps the (user, category) counter, then fans the
// fresh count out to whatever sockets happen to be connected. The write is
// the contract; the frame is best effort.
func (h *NotificationHub) PushUnreadDelta(ctx context.Context, category string, delta int64) (int64, error) {
	count, err := h.counters.IncrementUnread(ctx, h.UserID, category, delta)
	if err != nil {
		return 0, err
	}

	select {
	case h.pushes <- UnreadUpdatedPayload{Category: category, Count: count}:
	default:
		h.logger.Warn("unread push queue full", "", zap.String("user_id", h.UserID.String()))
	}
	return count, nil
}

func (h *NotificationHub) Run() {
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

		case push := <-h.pushes:
			h.broadcastFrame(FrameUnreadUpdated, push)

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

func (h *NotificationHub) Stop() {
	select {
	case <-h.stopChan:
		return
	default:
	}
	close(h.stopChan)
	<-h.done
}

func (h *NotificationHub) handleRegister(c *Client) {
	stopTimer(h.idleTimer)
	h.clients[c] = struct{}{}

	c.handshakeTimer = time.AfterFunc(h.cfg.HandshakeWindow, func() {
		h.post(hubEvent{kind: evTimeout, client: c})
	})

	if c.conn != nil {
		go c.writePump()
		go c.readPump()
	}
	h.logger.Info("notification client connected", c.id, zap.String("user_id", h.UserID.String()))
}

func (h *NotificationHub) handleUnregister(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	delete(h.authed, c)
	c.close()

	if len(h.clients) == 0 {
		h.idleTimer.Reset(h.cfg.EvictAfter)
	}
}

func (h *NotificationHub) handleHandshakeTimeout(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	if c.State() != StateConnecting {
		return
	}
	c.sendFrame(FrameAuthError, ErrorPayload{Code: CodeAuth, Reason: "handshake timeout"})
	h.handleUnregister(c)
}

func (h *NotificationHub) handleFrame(c *Client, f Frame) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	switch f.Type {
	case FrameAuth:
		h.handleAuth(c, f)
	case FramePing:
		c.sendFrame(FramePong, nil)
	case FrameMarkRead:
		h.handleMarkRead(c, f)
	default:
		c.sendError(intake_errors.ErrProtocol, "unknown frame type: "+f.Type)
	}
}

func (h *NotificationHub) handleAuth(c *Client, f Frame) {
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
	// The socket was routed to this hub at upgrade time; a token for a
	// different user is a protocol violation, not a re-login.
	if identity.UserID != h.UserID {
		h.rejectAuth(c, "identity mismatch")
		return
	}

	if c.handshakeTimer != nil {
		c.handshakeTimer.Stop()
	}
	c.setState(StateAuthenticated)
	h.authed[c] = struct{}{}

	c.sendFrame(FrameAuthOK, AuthOKPayload{
		UserID:    identity.UserID.String(),
		Anonymous: identity.IsAnonymous,
	})
	h.sendSnapshot(c)
}

func (h *NotificationHub) rejectAuth(c *Client, reason string) {
	c.sendFrame(FrameAuthError, ErrorPayload{Code: CodeAuth, Reason: reason})
	h.handleUnregister(c)
}

// sendSnapshot replays the user's non-zero counters so a fresh socket does
// not have to poll the REST endpoint.
func (h *NotificationHub) sendSnapshot(c *Client) {
	counters, err := h.counters.Counters(context.Background(), h.UserID)
	if err != nil {
		h.logger.Warn("unread snapshot failed", c.id, zap.Error(err))
		return
	}
	for _, counter := range counters {
		if counter.Count == 0 {
			continue
		}
		c.sendFrame(FrameUnreadUpdated, UnreadUpdatedPayload{
			Category: counter.Category,
			Count:    counter.Count,
		})
	}
}

func (h *NotificationHub) handleMarkRead(c *Client, f Frame) {
	if _, ok := h.authed[c]; !ok {
		c.sendError(intake_errors.ErrProtocol, "authentication required")
		return
	}

	var payload MarkReadPayload
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		c.sendError(intake_errors.ErrProtocol, "malformed mark.read payload")
		return
	}

	if err := h.counters.MarkRead(context.Background(), h.UserID, payload.Category); err != nil {
		c.sendError(err, "mark read failed")
		return
	}
	h.broadcastFrame(FrameUnreadUpdated, UnreadUpdatedPayload{Category: payload.Category, Count: 0})
}

func (h *NotificationHub) broadcastFrame(frameType string, data interface{}) {
	raw := encodeFrame(frameType, data)
	for c := range h.authed {
		c.sendRaw(raw)
	}
}

func (h *NotificationHub) closeAll() {
	for c := range h.clients {
		c.close()
	}
	h.clients = make(map[*Client]struct{})
	h.authed = make(map[*Client]struct{})
}
